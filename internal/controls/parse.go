package controls

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/smazurov/camerasrc/internal/device"
)

const (
	colorTransformLimit = 2.0
	cctMin              = 1800
	cctMax              = 15000
)

// splitRange splits "min~max" into its two halves.
func splitRange(s string) (string, string, error) {
	parts := strings.Split(s, "~")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: %q is not min~max", ErrMalformed, s)
	}
	lo, hi := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if lo == "" || hi == "" {
		return "", "", fmt.Errorf("%w: %q is not min~max", ErrMalformed, s)
	}
	return lo, hi, nil
}

// ParseIntRange parses "min~max" with integer bounds, min <= max.
func ParseIntRange(s string) (device.IntRange, error) {
	lo, hi, err := splitRange(s)
	if err != nil {
		return device.IntRange{}, err
	}
	minV, errMin := strconv.Atoi(lo)
	maxV, errMax := strconv.Atoi(hi)
	if errMin != nil || errMax != nil {
		return device.IntRange{}, fmt.Errorf("%w: %q has non-integer bounds", ErrMalformed, s)
	}
	if minV > maxV {
		return device.IntRange{}, fmt.Errorf("%w: %q has min > max", ErrMalformed, s)
	}
	return device.IntRange{Min: minV, Max: maxV}, nil
}

// ParseFloatRange parses "min~max" with float bounds, min <= max.
func ParseFloatRange(s string) (device.FloatRange, error) {
	lo, hi, err := splitRange(s)
	if err != nil {
		return device.FloatRange{}, err
	}
	minV, errMin := strconv.ParseFloat(lo, 64)
	maxV, errMax := strconv.ParseFloat(hi, 64)
	if errMin != nil || errMax != nil {
		return device.FloatRange{}, fmt.Errorf("%w: %q has non-numeric bounds", ErrMalformed, s)
	}
	if minV > maxV {
		return device.FloatRange{}, fmt.Errorf("%w: %q has min > max", ErrMalformed, s)
	}
	return device.FloatRange{Min: minV, Max: maxV}, nil
}

// ParseCctRange parses a color temperature range and clamps it to the
// supported 1800K..15000K window.
func ParseCctRange(s string) (device.IntRange, error) {
	r, err := ParseIntRange(s)
	if err != nil {
		return r, err
	}
	r.Min = max(r.Min, cctMin)
	r.Max = min(r.Max, cctMax)
	if r.Min > r.Max {
		return device.IntRange{}, fmt.Errorf("%w: %q lies outside %d~%d", ErrMalformed, s, cctMin, cctMax)
	}
	return r, nil
}

// ParseWhitePoint parses "x,y".
func ParseWhitePoint(s string) (device.Point, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 2 {
		return device.Point{}, fmt.Errorf("%w: %q is not x,y", ErrMalformed, s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(fields[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(fields[1]))
	if errX != nil || errY != nil {
		return device.Point{}, fmt.Errorf("%w: %q is not x,y", ErrMalformed, s)
	}
	return device.Point{X: x, Y: y}, nil
}

// ParseColorTransform reads nine coefficients separated by commas or spaces
// into a row-major 3x3 matrix, clamping each to [-2, 2]. Coefficients past the
// ninth are ignored.
func ParseColorTransform(s string) (device.Matrix3, error) {
	var m device.Matrix3
	tokens := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(tokens) < 9 {
		return m, fmt.Errorf("%w: color transform needs 9 coefficients, got %d", ErrMalformed, len(tokens))
	}
	for i := range 9 {
		v, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil || math.IsNaN(v) {
			return device.Matrix3{}, fmt.Errorf("%w: coefficient %d %q", ErrMalformed, i, tokens[i])
		}
		m[i/3][i%3] = min(max(v, -colorTransformLimit), colorTransformLimit)
	}
	return m, nil
}

// ParseRegions reads "l,t,r,b,w;" entries. Every entry must be terminated by
// ';' and hold five integers; anything else rejects the whole string.
func ParseRegions(s string) ([]device.Region, error) {
	if !strings.Contains(s, ";") {
		return nil, fmt.Errorf("%w: region list %q has no ';'", ErrMalformed, s)
	}
	entries := strings.Split(s, ";")
	if last := strings.TrimSpace(entries[len(entries)-1]); last != "" {
		return nil, fmt.Errorf("%w: region %q is not terminated by ';'", ErrMalformed, last)
	}
	entries = entries[:len(entries)-1]

	regions := make([]device.Region, 0, len(entries))
	for _, entry := range entries {
		fields := strings.Split(entry, ",")
		if len(fields) != 5 {
			return nil, fmt.Errorf("%w: region %q needs left,top,right,bottom,weight", ErrMalformed, entry)
		}
		var v [5]int
		for i, f := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("%w: region %q field %d", ErrMalformed, entry, i)
			}
			v[i] = n
		}
		regions = append(regions, device.Region{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3], Weight: v[4]})
	}
	return regions, nil
}

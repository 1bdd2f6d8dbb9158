package controls

import (
	"fmt"
	"math"
	"slices"

	"github.com/smazurov/camerasrc/internal/device"
)

// Names referenced outside the table.
const (
	NameBufferCount       = "buffer-count"
	NamePrintFPS          = "printfps"
	NamePrintField        = "printfield"
	NameInterlaceMode     = "interlace-mode"
	NameDeinterlaceMethod = "deinterlace-method"
	NameIOMode            = "io-mode"
	NameDeviceName        = "device-name"
	NameNumVC             = "num-vc"
	NameDebugLevel        = "debug-level"
	NameExposureTime      = "exposure-time"
	NameGain              = "gain"
	NameSceneMode         = "scene-mode"
	NameDewarpingMode     = "dewarping-mode"
	NameInputWidth        = "input-width"
	NameInputHeight       = "input-height"
	NameInputFormat       = "input-format"
	NameBufferUsage       = "buffer-usage"
	NameIspControl        = "isp-control"
	NameLtmTuning         = "ltm-tuning-data"
)

// Bounds of the stream and sensor input settings.
const (
	MinBufferCount     = 2
	MaxBufferCount     = 10
	DefaultBufferCount = 6
	MinInputSize       = 0
	MaxInputSize       = 8192
)

// Kind is the value type of a control.
type Kind string

// Control kinds.
const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindString Kind = "string"
	KindEnum   Kind = "enum"
)

// Control describes one entry of the control surface.
type Control struct {
	Name        string
	Kind        Kind
	Description string
	Min         float64
	Max         float64
	Default     any
	Enum        Enum
	// Dispatch controls push the parameter set to an attached device.
	Dispatch bool
	// Live controls are read back from the device rather than the cache.
	Live bool
	// External controls are served by a registered Handler.
	External bool

	apply func(p *device.Params, v any) error
	live  func(p device.Params) any
}

// coerce converts v into the stored (user-visible) form and the form handed
// to apply. They differ only for enums: nick and numeric value.
func (c *Control) coerce(v any) (stored, canonical any, err error) {
	switch c.Kind {
	case KindInt:
		n, err := toInt(v)
		if err != nil {
			return nil, nil, err
		}
		if float64(n) < c.Min || float64(n) > c.Max {
			return nil, nil, fmt.Errorf("%w: %d not in [%v, %v]", ErrOutOfRange, n, c.Min, c.Max)
		}
		return n, n, nil
	case KindFloat:
		f, err := toFloat(v)
		if err != nil {
			return nil, nil, err
		}
		if math.IsNaN(f) || f < c.Min || f > c.Max {
			return nil, nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, f, c.Min, c.Max)
		}
		return f, f, nil
	case KindBool:
		b, err := toBool(v)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case KindEnum:
		nick, value, err := toNick(c.Enum, v)
		if err != nil {
			return nil, nil, err
		}
		return nick, value, nil
	default:
		s, err := toString(v)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

func intControl(name, desc string, lo, hi, def int, apply func(*device.Params, int)) *Control {
	c := &Control{Name: name, Kind: KindInt, Description: desc, Min: float64(lo), Max: float64(hi), Default: def}
	if apply != nil {
		c.Dispatch = true
		c.apply = func(p *device.Params, v any) error { apply(p, v.(int)); return nil }
	}
	return c
}

func boolControl(name, desc string, def bool) *Control {
	return &Control{Name: name, Kind: KindBool, Description: desc, Default: def}
}

func enumControl(name, desc string, e Enum, apply func(*device.Params, int)) *Control {
	c := &Control{Name: name, Kind: KindEnum, Description: desc, Enum: e, Default: e[0].Nick}
	if apply != nil {
		c.Dispatch = true
		c.apply = func(p *device.Params, v any) error { apply(p, v.(int)); return nil }
	}
	return c
}

func textControl(name, desc string, apply func(*device.Params, string) error) *Control {
	return &Control{
		Name: name, Kind: KindString, Description: desc, Default: "", Dispatch: true,
		apply: func(p *device.Params, v any) error { return apply(p, v.(string)) },
	}
}

func rgbControls(prefix, desc string, field func(*device.Params) *device.RGB) []*Control {
	return []*Control{
		intControl(prefix+"-r", desc+" (red)", 0, 255, 0, func(p *device.Params, v int) { field(p).R = v }),
		intControl(prefix+"-g", desc+" (green)", 0, 255, 0, func(p *device.Params, v int) { field(p).G = v }),
		intControl(prefix+"-b", desc+" (blue)", 0, 255, 0, func(p *device.Params, v int) { field(p).B = v }),
	}
}

func buildTable() []*Control {
	table := []*Control{
		// Session settings kept in the cache only.
		intControl(NameBufferCount, "Number of buffers per branch pool", MinBufferCount, MaxBufferCount, DefaultBufferCount, nil),
		boolControl(NamePrintFPS, "Log the average frame rate every 60 frames", false),
		boolControl(NamePrintField, "Log the field order of every frame", false),
		enumControl(NameInterlaceMode, "Field order requested from the camera", interlaceEnum, nil),
		{
			Name: NameDeinterlaceMethod, Kind: KindEnum, Description: "Deinterlace method; only hw_weaving runs on the camera",
			Enum: deinterlaceEnum, Default: deinterlaceEnum[0].Nick,
			apply: func(p *device.Params, v any) error {
				p.DeinterlaceMode = device.DeinterlaceOff
				if v.(int) == DeinterlaceHwWeaving {
					p.DeinterlaceMode = device.DeinterlaceWeaving
				}
				return nil
			},
		},
		enumControl(NameIOMode, "Memory sharing mode between camera and consumers", ioModeEnum, nil),
		{Name: NameDeviceName, Kind: KindString, Description: "Camera to open", Default: ""},
		intControl(NameNumVC, "Number of virtual channels", 0, 8, 0, nil),
		intControl(NameDebugLevel, "Camera library debug mask", 0, 1048576, 0, nil),
		intControl(NameInputWidth, "Sensor input width, 0 for same as output", MinInputSize, MaxInputSize, 0, nil),
		intControl(NameInputHeight, "Sensor input height, 0 for same as output", MinInputSize, MaxInputSize, 0, nil),
		{
			Name: NameInputFormat, Kind: KindString, Description: "Sensor input fourcc, empty for same as output", Default: "",
			apply: func(_ *device.Params, v any) error {
				if s := v.(string); s != "" {
					if _, err := device.ParseFourCC(s); err != nil {
						return fmt.Errorf("%w: %v", ErrMalformed, err)
					}
				}
				return nil
			},
		},
		enumControl(NameBufferUsage, "Buffer usage hint for the pool", bufferUsageEnum, nil),

		// Image enhancement.
		intControl("sharpness", "Sharpness", -128, 127, 0, func(p *device.Params, v int) { p.Enhancement.Sharpness = v }),
		intControl("brightness", "Brightness", -128, 127, 0, func(p *device.Params, v int) { p.Enhancement.Brightness = v }),
		intControl("contrast", "Contrast", -128, 127, 0, func(p *device.Params, v int) { p.Enhancement.Contrast = v }),
		intControl("hue", "Hue", -128, 127, 0, func(p *device.Params, v int) { p.Enhancement.Hue = v }),
		intControl("saturation", "Saturation", -128, 127, 0, func(p *device.Params, v int) { p.Enhancement.Saturation = v }),

		enumControl("iris-mode", "Iris mode", irisEnum, func(p *device.Params, v int) { p.IrisMode = device.IrisMode(v) }),
		intControl("iris-level", "Iris level", 0, 100, 0, func(p *device.Params, v int) { p.IrisLevel = v }),
		enumControl("blc-area-mode", "Backlight compensation area", onOffBlcEnum, func(p *device.Params, v int) { p.BlcAreaMode = device.BlcAreaMode(v) }),
		intControl("wdr-level", "Wide dynamic range level", 0, 200, 100, func(p *device.Params, v int) { p.WdrLevel = v }),

		// Exposure. exposure-time, gain and scene-mode reach the parameter set
		// through reconciliation once set by the user.
		{Name: NameExposureTime, Kind: KindInt, Description: "Manual exposure time in microseconds", Min: 90, Max: 33333, Default: 90, Dispatch: true},
		{Name: NameGain, Kind: KindFloat, Description: "Manual gain in dB", Min: 0, Max: 60, Default: 0.0, Dispatch: true},
		{Name: NameSceneMode, Kind: KindEnum, Description: "Scene mode", Enum: sceneEnum, Default: sceneEnum[0].Nick, Dispatch: true},
		enumControl("ae-mode", "Auto exposure mode", aeModeEnum, func(p *device.Params, v int) { p.AeMode = device.AeMode(v) }),
		enumControl("weight-grid-mode", "AE weight grid", weightGridEnum, func(p *device.Params, v int) { p.WeightGridMode = device.WeightGridMode(v) }),
		textControl("ae-region", "AE regions as l,t,r,b,w; entries", func(p *device.Params, s string) error {
			regions, err := ParseRegions(s)
			if err != nil {
				return err
			}
			p.AeRegions = regions
			return nil
		}),
		textControl("expo-time-range", "AE exposure time range min~max", func(p *device.Params, s string) error {
			r, err := ParseIntRange(s)
			if err != nil {
				return err
			}
			p.ExposureTimeRange = r
			return nil
		}),
		textControl("gain-range", "AE gain range min~max", func(p *device.Params, s string) error {
			r, err := ParseFloatRange(s)
			if err != nil {
				return err
			}
			p.GainRange = r
			return nil
		}),
		intControl("ev", "Exposure compensation", -3, 3, 0, func(p *device.Params, v int) { p.EV = v }),
		enumControl("exp-priority", "Exposure priority", expPriorityEnum, func(p *device.Params, v int) { p.ExposurePriority = device.ExposurePriority(v) }),
		enumControl("antibanding-mode", "Antibanding mode", antibandingEnum, func(p *device.Params, v int) { p.AntibandingMode = device.AntibandingMode(v) }),
		enumControl("converge-speed", "AE and AWB convergence speed", convergeSpeedEnum, func(p *device.Params, v int) {
			p.AeConvergeSpeed = device.ConvergeSpeed(v)
			p.AwbConvergeSpeed = device.ConvergeSpeed(v)
		}),
		enumControl("converge-speed-mode", "AE and AWB convergence implementation", convergeModeEnum, func(p *device.Params, v int) {
			p.AeConvergeSpeedMode = device.ConvergeSpeedMode(v)
			p.AwbConvergeSpeedMode = device.ConvergeSpeedMode(v)
		}),

		// White balance.
		enumControl("awb-mode", "White balance mode", awbEnum, func(p *device.Params, v int) { p.AwbMode = device.AwbMode(v) }),
		textControl("cct-range", "Color temperature range min~max", func(p *device.Params, s string) error {
			r, err := ParseCctRange(s)
			if err != nil {
				return err
			}
			p.AwbCctRange = r
			return nil
		}),
		textControl("wp-point", "White point x,y", func(p *device.Params, s string) error {
			pt, err := ParseWhitePoint(s)
			if err != nil {
				return err
			}
			p.AwbWhitePoint = pt
			return nil
		}),
		textControl("color-transform", "3x3 color transform, coefficients in [-2, 2]", func(p *device.Params, s string) error {
			m, err := ParseColorTransform(s)
			if err != nil {
				return err
			}
			p.ColorTransform = m
			return nil
		}),

		enumControl("sensor-resolution", "Sensor resolution", sensorResolutionEnum, func(p *device.Params, v int) { p.SensorResolution = device.SensorResolution(v) }),
		enumControl("color-range", "Output color range", colorRangeEnum, func(p *device.Params, v int) { p.ColorRange = device.ColorRange(v) }),
		enumControl("video-stabilization", "Digital video stabilization", stabilizationEnum, func(p *device.Params, v int) { p.VideoStabilization = device.VideoStabilization(v) }),
		{
			Name: NameDewarpingMode, Kind: KindEnum, Description: "Fisheye dewarping mode", Enum: dewarpingEnum,
			Default: dewarpingEnum[0].Nick, Dispatch: true, Live: true,
			apply: func(p *device.Params, v any) error { p.DewarpingMode = device.DewarpingMode(v.(int)); return nil },
			live: func(p device.Params) any {
				nick, _ := dewarpingEnum.Nick(int(p.DewarpingMode))
				return nick
			},
		},
		textControl("custom-aic-param", "Custom AIC parameter string", func(p *device.Params, s string) error {
			if s == "" {
				p.CustomAicParam = nil
				return nil
			}
			p.CustomAicParam = append([]byte(s), 0)
			return nil
		}),

		{Name: NameIspControl, Kind: KindString, Description: "ISP control file to load and apply", Default: "", External: true, Live: true},
		{Name: NameLtmTuning, Kind: KindString, Description: "LTM tuning file to load", Default: "", External: true, Live: true},
	}

	table = slices.Concat(table,
		rgbControls("awb-gain", "Manual white balance gain", func(p *device.Params) *device.RGB { return &p.AwbGains }),
		rgbControls("awb-shift", "White balance gain shift", func(p *device.Params) *device.RGB { return &p.AwbGainShift }),
	)
	return table
}

var (
	controlTable = buildTable()
	controlIndex = func() map[string]*Control {
		m := make(map[string]*Control, len(controlTable))
		for _, c := range controlTable {
			m[c.Name] = c
		}
		return m
	}()
)

// Lookup returns the control named name.
func Lookup(name string) (*Control, bool) {
	c, ok := controlIndex[name]
	return c, ok
}

// All returns every control in table order.
func All() []*Control {
	return slices.Clone(controlTable)
}

package device

import (
	"fmt"
	"strings"
)

// FourCC is a little-endian four character pixel format code.
type FourCC uint32

// Pixel formats the capture source knows by name.
const (
	FormatNV12 FourCC = 'N' | 'V'<<8 | '1'<<16 | '2'<<24
	FormatYUY2 FourCC = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	FormatUYVY FourCC = 'U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24
	FormatBGRx FourCC = 'X' | 'R'<<8 | '2'<<16 | '4'<<24
	FormatRGB3 FourCC = 'R' | 'G'<<8 | 'B'<<16 | '3'<<24
)

var formatAliases = map[string]FourCC{
	"NV12": FormatNV12,
	"YUY2": FormatYUY2,
	"YUYV": FormatYUY2,
	"UYVY": FormatUYVY,
	"BGRX": FormatBGRx,
	"XR24": FormatBGRx,
	"RGB3": FormatRGB3,
	"RGB":  FormatRGB3,
}

// ParseFourCC accepts a known alias (NV12, YUY2, UYVY, BGRx, RGB) or any four
// character code.
func ParseFourCC(s string) (FourCC, error) {
	if f, ok := formatAliases[strings.ToUpper(s)]; ok {
		return f, nil
	}
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid fourcc %q", s)
	}
	return FourCC(uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24), nil
}

func (f FourCC) String() string {
	if f == 0 {
		return "none"
	}
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}

// Field is the interlacing layout of a stream.
type Field int

// Field orders; values follow V4L2.
const (
	FieldAny       Field = 0
	FieldAlternate Field = 7
)

func (f Field) String() string {
	switch f {
	case FieldAny:
		return "any"
	case FieldAlternate:
		return "alternate"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// MemoryType is how frame memory is shared with the camera.
type MemoryType int

// Memory types; values follow V4L2.
const (
	MemoryMMAP    MemoryType = 1
	MemoryUserPtr MemoryType = 2
	MemoryDMABuf  MemoryType = 4
)

func (m MemoryType) String() string {
	switch m {
	case MemoryMMAP:
		return "mmap"
	case MemoryUserPtr:
		return "userptr"
	case MemoryDMABuf:
		return "dmabuf"
	default:
		return fmt.Sprintf("memory(%d)", int(m))
	}
}

// StreamConfig is one stream as the camera enumerates or configures it.
type StreamConfig struct {
	Format  FourCC     `json:"format"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Field   Field      `json:"field"`
	Stride  int        `json:"stride"`
	Size    int        `json:"size"`
	MemType MemoryType `json:"mem_type,omitempty"`
}

// SameShape reports whether c and o agree on format, size and field order.
// Stride and memory type are properties of the match, not of the request.
func (c StreamConfig) SameShape(o StreamConfig) bool {
	return c.Format == o.Format && c.Width == o.Width && c.Height == o.Height && c.Field == o.Field
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%s %dx%d field=%s stride=%d", c.Format, c.Width, c.Height, c.Field, c.Stride)
}

// OperationMode selects the camera pipeline used for a stream list.
type OperationMode uint32

// Operation modes keyed by scene mode.
const (
	OperationModeNormal       OperationMode = 0
	OperationModeAuto         OperationMode = 0x8001
	OperationModeHDR          OperationMode = 0x8002
	OperationModeULL          OperationMode = 0x8003
	OperationModeHLC          OperationMode = 0x8004
	OperationModeCustomAIC    OperationMode = 0x8005
	OperationModeVideoLL      OperationMode = 0x8006
	OperationModeStillCapture OperationMode = 0x8007
)

// StreamList is the single argument of Device.Configure: every stream in
// slot order plus the pipeline mode.
type StreamList struct {
	Streams       []StreamConfig
	OperationMode OperationMode
}

// InputConfig describes the sensor input when it differs from the outputs.
// Zero width and height mean "same as output".
type InputConfig struct {
	Width  int
	Height int
	Format FourCC
}

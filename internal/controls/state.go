package controls

import (
	"maps"

	"github.com/smazurov/camerasrc/internal/device"
)

// State is the user-visible value of every control plus the three flags
// recording which exposure settings the user chose explicitly.
type State struct {
	values map[string]any

	ManualExposure bool
	ManualGain     bool
	ManualScene    bool
}

func newState() State {
	s := State{values: make(map[string]any, len(controlTable))}
	for _, c := range controlTable {
		s.values[c.Name] = c.Default
	}
	return s
}

// Value returns the cached value of name.
func (s State) Value(name string) any {
	return s.values[name]
}

func (s State) clone() State {
	out := s
	out.values = maps.Clone(s.values)
	return out
}

func (s State) intValue(name string) int {
	v, _ := s.values[name].(int)
	return v
}

func (s State) floatValue(name string) float64 {
	v, _ := s.values[name].(float64)
	return v
}

func (s State) boolValue(name string) bool {
	v, _ := s.values[name].(bool)
	return v
}

func (s State) stringValue(name string) string {
	v, _ := s.values[name].(string)
	return v
}

func (s State) enumValue(name string) int {
	c := controlIndex[name]
	v, _ := c.Enum.Lookup(s.stringValue(name))
	return v
}

func (s State) sceneMode() device.SceneMode {
	return device.SceneMode(s.enumValue(NameSceneMode))
}

// Settings are the session-level values that never reach the parameter set
// but shape negotiation and buffer handling.
type Settings struct {
	BufferCount       int
	PrintFPS          bool
	PrintField        bool
	Interlace         device.Field
	DeinterlaceMethod int
	MemoryType        device.MemoryType
	DeviceName        string
	NumVC             int
	DebugLevel        int
	InputWidth        int
	InputHeight       int
	InputFormat       device.FourCC
	BufferUsage       int
	SceneMode         device.SceneMode
}

func (s State) settings() Settings {
	format, _ := device.ParseFourCC(s.stringValue(NameInputFormat))
	return Settings{
		BufferCount:       s.intValue(NameBufferCount),
		PrintFPS:          s.boolValue(NamePrintFPS),
		PrintField:        s.boolValue(NamePrintField),
		Interlace:         device.Field(s.enumValue(NameInterlaceMode)),
		DeinterlaceMethod: s.enumValue(NameDeinterlaceMethod),
		MemoryType:        MemoryType(s.enumValue(NameIOMode)),
		DeviceName:        s.stringValue(NameDeviceName),
		NumVC:             s.intValue(NameNumVC),
		DebugLevel:        s.intValue(NameDebugLevel),
		InputWidth:        s.intValue(NameInputWidth),
		InputHeight:       s.intValue(NameInputHeight),
		InputFormat:       format,
		BufferUsage:       s.enumValue(NameBufferUsage),
		SceneMode:         s.sceneMode(),
	}
}

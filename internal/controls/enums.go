package controls

import (
	"slices"

	"github.com/smazurov/camerasrc/internal/device"
)

// EnumValue pairs a user-facing nick with its numeric value.
type EnumValue struct {
	Nick  string `json:"nick"`
	Value int    `json:"value"`
}

// Enum is an ordered nick table; the first entry is the default.
type Enum []EnumValue

// Lookup returns the value for nick.
func (e Enum) Lookup(nick string) (int, bool) {
	i := slices.IndexFunc(e, func(v EnumValue) bool { return v.Nick == nick })
	if i < 0 {
		return 0, false
	}
	return e[i].Value, true
}

// Nick returns the nick for value.
func (e Enum) Nick(value int) (string, bool) {
	i := slices.IndexFunc(e, func(v EnumValue) bool { return v.Value == value })
	if i < 0 {
		return "", false
	}
	return e[i].Nick, true
}

// Nicks lists every nick in table order.
func (e Enum) Nicks() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.Nick
	}
	return out
}

// Deinterlace methods. Only hw_weaving is carried out by the camera.
const (
	DeinterlaceNone = iota
	DeinterlaceSwBob
	DeinterlaceSwWeaving
	DeinterlaceHwWeaving
)

// IO modes.
const (
	IOModeUserptr = iota
	IOModeMmap
	IOModeDMA
	IOModeDMAImport
)

// Buffer usages.
const (
	BufferUsageNone = iota
	BufferUsageRead
	BufferUsageWrite
	BufferUsageDMAExport
)

var (
	interlaceEnum = Enum{
		{"any", int(device.FieldAny)},
		{"alternate", int(device.FieldAlternate)},
	}
	deinterlaceEnum = Enum{
		{"none", DeinterlaceNone},
		{"sw_bob", DeinterlaceSwBob},
		{"sw_weaving", DeinterlaceSwWeaving},
		{"hw_weaving", DeinterlaceHwWeaving},
	}
	ioModeEnum = Enum{
		{"userptr", IOModeUserptr},
		{"mmap", IOModeMmap},
		{"dma", IOModeDMA},
		{"dma_import", IOModeDMAImport},
	}
	bufferUsageEnum = Enum{
		{"none", BufferUsageNone},
		{"read", BufferUsageRead},
		{"write", BufferUsageWrite},
		{"dma_export", BufferUsageDMAExport},
	}
	irisEnum = Enum{
		{"auto", int(device.IrisAuto)},
		{"manual", int(device.IrisManual)},
		{"customized", int(device.IrisCustomized)},
	}
	onOffBlcEnum = Enum{
		{"off", int(device.BlcOff)},
		{"on", int(device.BlcOn)},
	}
	stabilizationEnum = Enum{
		{"off", int(device.StabilizationOff)},
		{"on", int(device.StabilizationOn)},
	}
	dewarpingEnum = Enum{
		{"off", int(device.DewarpingOff)},
		{"rearview", int(device.DewarpingRearview)},
		{"hitchview", int(device.DewarpingHitchview)},
	}
	awbEnum = Enum{
		{"auto", int(device.AwbAuto)},
		{"incandescent", int(device.AwbIncandescent)},
		{"fluorescent", int(device.AwbFluorescent)},
		{"daylight", int(device.AwbDaylight)},
		{"fully_overcast", int(device.AwbFullyOvercast)},
		{"partly_overcast", int(device.AwbPartlyOvercast)},
		{"sunset", int(device.AwbSunset)},
		{"video_conferencing", int(device.AwbVideoConferencing)},
		{"cct_range", int(device.AwbCctRange)},
		{"white_point", int(device.AwbWhitePoint)},
		{"manual_gain", int(device.AwbManualGain)},
		{"color_transform", int(device.AwbColorTransform)},
	}
	sceneEnum = Enum{
		{"auto", int(device.SceneAuto)},
		{"hdr", int(device.SceneHDR)},
		{"ull", int(device.SceneULL)},
		{"hlc", int(device.SceneHLC)},
		{"normal", int(device.SceneNormal)},
		{"indoor", int(device.SceneIndoor)},
		{"outdoor", int(device.SceneOutdoor)},
		{"custom_aic", int(device.SceneCustomAIC)},
		{"video-ll", int(device.SceneVideoLL)},
		{"still_capture", int(device.SceneStillCapture)},
		{"disabled", int(device.SceneDisabled)},
	}
	sensorResolutionEnum = Enum{
		{"1080p", int(device.Resolution1080p)},
		{"720p", int(device.Resolution720p)},
		{"4K", int(device.Resolution4K)},
	}
	aeModeEnum = Enum{
		{"auto", int(device.AeAuto)},
		{"manual", int(device.AeManual)},
	}
	weightGridEnum = Enum{
		{"auto", int(device.WeightGridAuto)},
		{"wg1", int(device.WeightGrid1)},
		{"wg2", int(device.WeightGrid2)},
		{"wg3", int(device.WeightGrid3)},
		{"wg4", int(device.WeightGrid4)},
		{"wg5", int(device.WeightGrid5)},
		{"wg6", int(device.WeightGrid6)},
		{"wg7", int(device.WeightGrid7)},
		{"wg8", int(device.WeightGrid8)},
		{"wg9", int(device.WeightGrid9)},
		{"wg10", int(device.WeightGrid10)},
	}
	convergeSpeedEnum = Enum{
		{"normal", int(device.ConvergeNormal)},
		{"mid", int(device.ConvergeMid)},
		{"low", int(device.ConvergeLow)},
	}
	convergeModeEnum = Enum{
		{"aiq", int(device.ConvergeModeAIQ)},
		{"hal", int(device.ConvergeModeHAL)},
	}
	antibandingEnum = Enum{
		{"auto", int(device.AntibandingAuto)},
		{"50", int(device.Antibanding50Hz)},
		{"60", int(device.Antibanding60Hz)},
		{"off", int(device.AntibandingOff)},
	}
	colorRangeEnum = Enum{
		{"full", int(device.ColorRangeFull)},
		{"reduced", int(device.ColorRangeReduced)},
	}
	expPriorityEnum = Enum{
		{"auto", int(device.PriorityAuto)},
		{"shutter", int(device.PriorityShutter)},
		{"iso", int(device.PriorityISO)},
		{"aperture", int(device.PriorityAperture)},
	}
)

// MemoryType maps an io-mode value onto the memory type streams are
// configured with.
func MemoryType(ioMode int) device.MemoryType {
	switch ioMode {
	case IOModeUserptr:
		return device.MemoryUserPtr
	case IOModeDMAImport:
		return device.MemoryDMABuf
	default:
		return device.MemoryMMAP
	}
}

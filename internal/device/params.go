package device

import (
	"maps"
	"slices"
)

// SceneMode selects the camera's tuning preset.
type SceneMode int

// Scene modes.
const (
	SceneAuto SceneMode = iota
	SceneHDR
	SceneULL
	SceneHLC
	SceneNormal
	SceneIndoor
	SceneOutdoor
	SceneCustomAIC
	SceneVideoLL
	SceneStillCapture
	SceneDisabled
)

// OperationMode maps a scene mode onto the pipeline selector used when
// configuring streams. ok is false for modes without a dedicated pipeline;
// callers fall back to OperationModeAuto.
func (s SceneMode) OperationMode() (mode OperationMode, ok bool) {
	switch s {
	case SceneAuto:
		return OperationModeAuto, true
	case SceneHDR:
		return OperationModeHDR, true
	case SceneULL:
		return OperationModeULL, true
	case SceneHLC:
		return OperationModeHLC, true
	case SceneCustomAIC:
		return OperationModeCustomAIC, true
	case SceneVideoLL:
		return OperationModeVideoLL, true
	case SceneStillCapture:
		return OperationModeStillCapture, true
	case SceneNormal:
		return OperationModeNormal, true
	default:
		return OperationModeAuto, false
	}
}

// AwbMode is the white balance algorithm.
type AwbMode int

// White balance modes.
const (
	AwbAuto AwbMode = iota
	AwbIncandescent
	AwbFluorescent
	AwbDaylight
	AwbFullyOvercast
	AwbPartlyOvercast
	AwbSunset
	AwbVideoConferencing
	AwbCctRange
	AwbWhitePoint
	AwbManualGain
	AwbColorTransform
)

// Small enumerations shared by several controls.
type (
	AeMode             int
	IrisMode           int
	WeightGridMode     int
	ConvergeSpeed      int
	ConvergeSpeedMode  int
	AntibandingMode    int
	ColorRange         int
	ExposurePriority   int
	DewarpingMode      int
	DeinterlaceMode    int
	SensorResolution   int
	BlcAreaMode        int
	VideoStabilization int
)

// AE modes.
const (
	AeAuto AeMode = iota
	AeManual
)

// Iris modes.
const (
	IrisAuto IrisMode = iota
	IrisManual
	IrisCustomized
)

// Weight grid modes: auto, then the ten predefined grids.
const (
	WeightGridAuto WeightGridMode = iota
	WeightGrid1
	WeightGrid2
	WeightGrid3
	WeightGrid4
	WeightGrid5
	WeightGrid6
	WeightGrid7
	WeightGrid8
	WeightGrid9
	WeightGrid10
)

// Convergence speeds.
const (
	ConvergeNormal ConvergeSpeed = iota
	ConvergeMid
	ConvergeLow
)

// Convergence speed implementations.
const (
	ConvergeModeAIQ ConvergeSpeedMode = iota
	ConvergeModeHAL
)

// Antibanding modes.
const (
	AntibandingAuto AntibandingMode = iota
	Antibanding50Hz
	Antibanding60Hz
	AntibandingOff
)

// Output color ranges.
const (
	ColorRangeFull ColorRange = iota
	ColorRangeReduced
)

// Exposure priorities.
const (
	PriorityAuto ExposurePriority = iota
	PriorityShutter
	PriorityISO
	PriorityAperture
)

// Dewarping modes.
const (
	DewarpingOff DewarpingMode = iota
	DewarpingRearview
	DewarpingHitchview
)

// Deinterlace modes understood by the camera.
const (
	DeinterlaceOff DeinterlaceMode = iota
	DeinterlaceWeaving
)

// Sensor resolutions.
const (
	Resolution1080p SensorResolution = iota
	Resolution720p
	Resolution4K
)

// BLC area modes.
const (
	BlcOff BlcAreaMode = iota
	BlcOn
)

// Video stabilization modes.
const (
	StabilizationOff VideoStabilization = iota
	StabilizationOn
)

// ExposureRange bounds the exposure time (microseconds) for one scene mode.
type ExposureRange struct {
	SceneMode SceneMode
	Min       int
	Max       int
}

// GainRange bounds the gain (dB) for one scene mode.
type GainRange struct {
	SceneMode SceneMode
	Min       float64
	Max       float64
}

// IntRange is an inclusive integer interval.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FloatRange is an inclusive float interval.
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Region is one weighted AE metering rectangle.
type Region struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Weight int `json:"weight"`
}

// RGB holds per-channel white balance values.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Point is a coordinate in the sensor plane.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Matrix3 is a 3x3 color transform, row major.
type Matrix3 [3][3]float64

// ImageEnhancement groups the signed picture adjustments.
type ImageEnhancement struct {
	Sharpness  int `json:"sharpness"`
	Brightness int `json:"brightness"`
	Contrast   int `json:"contrast"`
	Hue        int `json:"hue"`
	Saturation int `json:"saturation"`
}

// Params is the full parameter set exchanged with the camera in one call.
type Params struct {
	Enhancement ImageEnhancement

	IrisMode    IrisMode
	IrisLevel   int
	BlcAreaMode BlcAreaMode
	WdrLevel    int

	AeMode            AeMode
	ExposureTime      int
	Gain              float64
	ExposureTimeRange IntRange
	GainRange         FloatRange
	WeightGridMode    WeightGridMode
	AeRegions         []Region
	ExposurePriority  ExposurePriority
	EV                int

	AwbMode        AwbMode
	AwbCctRange    IntRange
	AwbWhitePoint  Point
	AwbGains       RGB
	AwbGainShift   RGB
	ColorTransform Matrix3

	AeConvergeSpeed      ConvergeSpeed
	AwbConvergeSpeed     ConvergeSpeed
	AeConvergeSpeedMode  ConvergeSpeedMode
	AwbConvergeSpeedMode ConvergeSpeedMode
	AntibandingMode      AntibandingMode
	ColorRange           ColorRange
	SceneMode            SceneMode
	SensorResolution     SensorResolution
	VideoStabilization   VideoStabilization
	DeinterlaceMode      DeinterlaceMode
	DewarpingMode        DewarpingMode
	FrameRate            float64

	// CustomAicParam is sent NUL terminated.
	CustomAicParam []byte
	LtmTuning      []byte

	// IspControls holds opaque tag payloads; only tags in EnabledIspControls
	// take effect.
	IspControls        map[uint32][]byte
	EnabledIspControls []uint32
}

// Clone returns a deep copy so the camera never aliases cached slices.
func (p Params) Clone() Params {
	out := p
	out.AeRegions = slices.Clone(p.AeRegions)
	out.CustomAicParam = slices.Clone(p.CustomAicParam)
	out.LtmTuning = slices.Clone(p.LtmTuning)
	out.EnabledIspControls = slices.Clone(p.EnabledIspControls)
	if p.IspControls != nil {
		out.IspControls = make(map[uint32][]byte, len(p.IspControls))
		for tag, payload := range maps.All(p.IspControls) {
			out.IspControls[tag] = slices.Clone(payload)
		}
	}
	return out
}

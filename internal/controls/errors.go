package controls

import "errors"

var (
	// ErrUnknownControl is returned for names outside the control table.
	ErrUnknownControl = errors.New("unknown control")
	// ErrInvalidValue is returned when a value has the wrong type or names an
	// unknown enum nick.
	ErrInvalidValue = errors.New("invalid control value")
	// ErrOutOfRange is returned for numbers outside the control bounds.
	ErrOutOfRange = errors.New("control value out of range")
	// ErrMalformed is returned when a textual control does not parse. The
	// previous value stays in effect.
	ErrMalformed = errors.New("malformed control string")
	// ErrDetached is returned by live reads while no device is attached.
	ErrDetached = errors.New("no device attached")
)

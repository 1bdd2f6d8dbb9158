package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camerasrc/internal/branch"
	"github.com/smazurov/camerasrc/internal/controls"
	"github.com/smazurov/camerasrc/internal/device"
	"github.com/smazurov/camerasrc/internal/isp"
	"github.com/smazurov/camerasrc/internal/quorum"
	"github.com/smazurov/camerasrc/internal/source"
)

// mapError turns a domain error into a huma status error.
func mapError(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, controls.ErrUnknownControl),
		errors.Is(err, branch.ErrNotFound),
		errors.Is(err, isp.ErrTagNotFound),
		errors.Is(err, source.ErrNotNegotiated):
		return huma.Error404NotFound(msg, err)
	case errors.Is(err, controls.ErrInvalidValue),
		errors.Is(err, controls.ErrOutOfRange),
		errors.Is(err, controls.ErrMalformed),
		errors.Is(err, branch.ErrNoMatchingConfig),
		errors.Is(err, isp.ErrFile),
		errors.Is(err, source.ErrInputBounds):
		return huma.Error400BadRequest(msg, err)
	case errors.Is(err, branch.ErrDuplicate),
		errors.Is(err, branch.ErrMainBranch),
		errors.Is(err, source.ErrAlreadyStarted),
		errors.Is(err, source.ErrNotStarted),
		errors.Is(err, controls.ErrDetached),
		errors.Is(err, quorum.ErrReconfigureUnsupported),
		errors.Is(err, quorum.ErrCancelled):
		return huma.Error409Conflict(msg, err)
	case errors.Is(err, device.ErrDeviceCall):
		return huma.Error502BadGateway(msg, err)
	default:
		return huma.Error500InternalServerError("internal server error", err)
	}
}

// Package controls implements the camera control surface.
//
// Every control is a named, typed entry in a fixed table. Setting a control
// validates it, records the user-visible value in [State] and writes the
// corresponding field of the device parameter set. When a device is attached
// the whole parameter set is pushed in one call; otherwise values wait in the
// cache and reach the camera on [Cache.Attach].
//
// Exposure time and gain are clamped against the per-scene-mode limits the
// camera reports, but only once the user has set them explicitly.
package controls

// Package device describes the camera hardware as seen by the capture source.
//
// The vendor camera library is reached through [Device]: enumerate supported
// stream configurations, configure a stream list once, start and stop
// streaming, and exchange a whole [Params] set. [Driver] lists the cameras
// present and hands out devices by index.
//
// [Simulated] is an in-memory implementation with call counters. It backs the
// `run` command and every test in the module; its stream configurations can
// be seeded from a real V4L2 node.
package device

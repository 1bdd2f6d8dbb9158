// Package nats bridges the camera source onto a NATS bus.
//
// Every source event is published as JSON on
//
//	<prefix>.events.<name>
//
// where name is one of branch-added, branch-removed, branch-negotiated,
// streams-configured, session-state, control-changed or isp-applied.
//
// Controls can be read and written remotely with request/reply on
// <prefix>.control.get and <prefix>.control.set:
//
//	nats req camerasrc.control.set '{"name":"exposure-time","value":5000}'
//
// An embedded server is available for single-board deployments where no
// broker runs:
//
//	srv := nats.NewServer(nats.ServerOptions{Port: 4222})
//	if err := srv.Start(); err != nil { ... }
//	bridge := nats.NewBridge(srv.ClientURL(), "camerasrc", bus, src, logger)
package nats

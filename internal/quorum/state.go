package quorum

// State is the configuration state of one device session.
type State string

// Quorum states.
const (
	StateWaiting     State = "WAITING"     // Branches still negotiating
	StateConfiguring State = "CONFIGURING" // One branch is configuring the device
	StateConfigured  State = "CONFIGURED"  // Device configured for the session
	StateCancelled   State = "CANCELLED"   // Session stopped
)

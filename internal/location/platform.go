package location

// Listener receives platform events. A Platform has at most one Listener.
type Listener interface {
	// AuthorizationChanged may be delivered at any time, with or without an
	// outstanding fix request.
	AuthorizationChanged(state AuthorizationState)
	// FixReceived delivers one or more fixes, most relevant first.
	FixReceived(fixes []Coordinate)
	// FixFailed reports that the platform could not produce a fix.
	FixFailed(err error)
}

// Platform is the device location subsystem.
type Platform interface {
	Attach(l Listener)
	AuthorizationState() AuthorizationState
	// RequestAuthorization asks the user for permission. The answer arrives
	// later through AuthorizationChanged.
	RequestAuthorization()
	// RequestFix asks for a single fix, answered through FixReceived or
	// FixFailed.
	RequestFix()
}

package service

// State is a step of the lead processing state machine. States only move
// forward; a failure stops the machine in the last state it reached.
type State int

// Processing states in order.
const (
	StateReceivedRequest State = iota
	StateValidated
	StateTemplateFetched
	StateRendered
	StateUploaded
	StateAttached
	StateResponded
)

var stateNames = [...]string{
	StateReceivedRequest: "received_request",
	StateValidated:       "validated",
	StateTemplateFetched: "template_fetched",
	StateRendered:        "rendered",
	StateUploaded:        "uploaded",
	StateAttached:        "attached",
	StateResponded:       "responded",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

package session

// State is the lifecycle state of a Session. Exactly one value is live at a time.
type State uint32

const (
	StateReady State = iota
	StateGenerating
	StateResetting
	StateReloading
	StateTerminating
	StateFailed
	StatePendingImageUpload
	StateProcessingImage
)

var stateNames = [...]string{
	StateReady:              "ready",
	StateGenerating:         "generating",
	StateResetting:          "resetting",
	StateReloading:          "reloading",
	StateTerminating:        "terminating",
	StateFailed:             "failed",
	StatePendingImageUpload: "pending_image_upload",
	StateProcessingImage:    "processing_image",
}

// AllStates lists every State in declaration order.
var AllStates = []State{
	StateReady, StateGenerating, StateResetting, StateReloading,
	StateTerminating, StateFailed, StatePendingImageUpload, StateProcessingImage,
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Interruptible reports whether terminate/reload may be requested.
func (s State) Interruptible() bool {
	switch s {
	case StateReady, StateGenerating, StateFailed, StatePendingImageUpload:
		return true
	}
	return false
}

// Chattable reports whether a new generation may be requested.
func (s State) Chattable() bool { return s == StateReady }

// Uploadable reports whether an image may be processed.
func (s State) Uploadable() bool { return s == StatePendingImageUpload }

// Resettable reports whether the conversation may be reset.
func (s State) Resettable() bool { return s == StateReady || s == StateGenerating }

// Settled reports whether nothing is in flight and no transition is pending.
func (s State) Settled() bool {
	return s == StateReady || s == StateFailed || s == StatePendingImageUpload
}

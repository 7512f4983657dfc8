package session

// interruptPlan says where the epilogue of an interrupting request runs.
type interruptPlan int

const (
	planIllegal interruptPlan = iota
	// planRunInline: nothing is in flight, run the epilogue synchronously.
	planRunInline
	// planEnqueue: a generation is in flight; queue the epilogue behind it.
	planEnqueue
)

func (p interruptPlan) String() string {
	switch p {
	case planRunInline:
		return "inline"
	case planEnqueue:
		return "enqueue"
	}
	return "illegal"
}

// planInterrupt maps the state observed by the prologue to a plan.
func planInterrupt(prev State) interruptPlan {
	switch prev {
	case StateReady, StateFailed, StatePendingImageUpload:
		return planRunInline
	case StateGenerating:
		return planEnqueue
	}
	return planIllegal
}

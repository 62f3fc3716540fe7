package batch

// Observer receives batch events on the coordinator's goroutine. Callbacks
// must return promptly; workers stall while the coordinator is blocked.
type Observer interface {
	PhaseChanged(state State, label string)
	ItemProgress(name string, percent int)
	ItemCompleted(result Result)
	ItemFailed(failure Failure)
}

// NopObserver ignores every callback. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) PhaseChanged(State, string) {}
func (NopObserver) ItemProgress(string, int)   {}
func (NopObserver) ItemCompleted(Result)       {}
func (NopObserver) ItemFailed(Failure)         {}

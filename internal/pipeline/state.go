package pipeline

// State is one step of a teaching cycle. The sequence a cycle walks
// through is returned in the result's Trace.
type State string

const (
	StateInit              State = "init"
	StateDetectPreferences State = "detect_preferences"
	StateUpdatePreferences State = "update_preferences"
	StateSelectWorker      State = "select_worker"
	StateGenerate          State = "generate"
	StateEvaluate          State = "evaluate"
	StateRetry             State = "retry"
	StateAccept            State = "accept"
	StateGiveUp            State = "give_up"
)

// Terminal reports whether s ends a cycle.
func (s State) Terminal() bool {
	return s == StateAccept || s == StateGiveUp
}

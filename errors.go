package tandem

import "fmt"

// ValidationError reports malformed or missing caller input. Surfaced
// immediately, never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// DimensionError reports an embedding vector whose shape disagrees with the
// index's fixed dimension. Fatal to the call; the index is left unchanged.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index expects %d, got %d", e.Want, e.Got)
}

// InconsistentStateError reports persisted index artifacts that disagree.
// The index refuses to serve searches until explicitly rebuilt.
type InconsistentStateError struct {
	Msg string
}

func (e *InconsistentStateError) Error() string {
	return "inconsistent index state: " + e.Msg
}

// ErrLLM reports a generation backend failure.
type ErrLLM struct {
	Backend string
	Message string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Backend, e.Message)
}

// ErrHTTP reports a non-2xx response from a backend API.
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

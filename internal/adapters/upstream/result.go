// Package upstream holds what the external data source clients share: the
// result type, error kinds, the retrying HTTP client and the rate-limit
// cooldown.
package upstream

// Status classifies the outcome of an upstream call.
type Status int

// Result statuses.
const (
	StatusOK Status = iota + 1
	StatusNoData
	StatusError
)

// String returns the metrics label of s.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoData:
		return "no_data"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result carries a typed payload together with how it was obtained.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

// OK wraps a successfully fetched value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

// NoData reports that the source answered but had nothing for the character.
func NoData[T any]() Result[T] {
	return Result[T]{Status: StatusNoData}
}

// Failed reports a source error.
func Failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusError, Err: err}
}

// Ok reports whether the result carries a value.
func (r Result[T]) Ok() bool { return r.Status == StatusOK }

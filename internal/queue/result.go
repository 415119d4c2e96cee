package queue

// Result is the outcome of a queue operation that never fails the caller.
//
// On success Err is nil and Value holds the result. When storage failed,
// Value holds the safe default (zero record, empty list) and Err holds the
// absorbed *StorageError.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the operation reached storage.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Degraded reports whether the safe default was returned instead.
func (r Result[T]) Degraded() bool {
	return r.Err != nil
}

func succeeded[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func degraded[T any](v T, err error) Result[T] {
	return Result[T]{Value: v, Err: err}
}

package queue

import (
	"errors"
	"fmt"
)

// StorageErrorCode categorizes storage failures absorbed by the queue.
type StorageErrorCode string

const (
	// ErrCodeUnavailable indicates the backend could not be opened.
	ErrCodeUnavailable StorageErrorCode = "STORAGE_UNAVAILABLE"

	// ErrCodeWrite indicates a write (add, delete, clear) failed.
	ErrCodeWrite StorageErrorCode = "STORAGE_WRITE"

	// ErrCodeRead indicates listing records failed.
	ErrCodeRead StorageErrorCode = "STORAGE_READ"

	// ErrCodeInvalid indicates the request was rejected before storage.
	ErrCodeInvalid StorageErrorCode = "INVALID_REQUEST"
)

// StorageError describes a failure the queue absorbed.
type StorageError struct {
	Code StorageErrorCode
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Op)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageUnavailable returns true if err reports an unopenable backend.
// Uses errors.As to handle wrapped errors.
func IsStorageUnavailable(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code == ErrCodeUnavailable
	}
	return false
}

// IsInvalidRequest returns true if err reports a request that was refused
// before reaching storage.
func IsInvalidRequest(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code == ErrCodeInvalid
	}
	return false
}

func unavailable(op string, err error) *StorageError {
	return &StorageError{Code: ErrCodeUnavailable, Op: op, Err: err}
}

func writeFailed(op string, err error) *StorageError {
	return &StorageError{Code: ErrCodeWrite, Op: op, Err: err}
}

func readFailed(op string, err error) *StorageError {
	return &StorageError{Code: ErrCodeRead, Op: op, Err: err}
}

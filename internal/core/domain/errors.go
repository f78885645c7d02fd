package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStoreUnavailable  = errors.New("object store unavailable")
	ErrExtraction        = errors.New("text extraction failed")
	ErrInference         = errors.New("inference failed")
	ErrMalformedResponse = errors.New("malformed inference response")
	ErrIndexPersist      = errors.New("metadata index persist failed")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

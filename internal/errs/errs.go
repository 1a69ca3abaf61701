// Package errs holds the error kinds shared by the acquisition pipeline.
// Configuration errors stop the process; every other kind only ends the
// chain of the address that produced it.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindValidation
	KindFetch
	KindExtraction
	KindNavigation
	KindImageFetch
	KindArchive
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindValidation:
		return "validation error"
	case KindFetch:
		return "fetch error"
	case KindExtraction:
		return "extraction error"
	case KindNavigation:
		return "navigation error"
	case KindImageFetch:
		return "image fetch error"
	case KindArchive:
		return "archive error"
	case KindDirectory:
		return "directory error"
	default:
		return "error"
	}
}

// Error ties a cause to the address or locator it happened on.
type Error struct {
	Kind    Kind
	Address string
	Err     error
}

func (e *Error) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}

	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Address, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, address string, err error) error {
	return &Error{Kind: kind, Address: address, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

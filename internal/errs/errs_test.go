package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageCarriesAddressAndCause(t *testing.T) {
	err := New(KindFetch, "https://bato.to/chapter/1", errors.New("HTTP 503"))

	assert.Equal(t, "fetch error: https://bato.to/chapter/1: HTTP 503", err.Error())
}

func TestErrorWithoutAddress(t *testing.T) {
	err := New(KindConfiguration, "", errors.New("unknown flag: --foo"))

	assert.Equal(t, "configuration error: unknown flag: --foo", err.Error())
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("chapter failed: %w", New(KindArchive, "x.cbz", cause))

	assert.Equal(t, KindArchive, KindOf(err))
	assert.True(t, Is(err, KindArchive))
	assert.False(t, Is(err, KindFetch))
	assert.ErrorIs(t, err, cause)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindUnknown))
}

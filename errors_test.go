package shp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShapeErrorIsMatchesByType(t *testing.T) {
	err := NewShapeError(ErrOutOfRange, "oid 99 out of range", nil)
	assert.True(t, errors.Is(err, ErrNoSuchRecord))
	assert.False(t, errors.Is(err, ErrInvalidFileHeader))
}

func TestShapeErrorUnwrap(t *testing.T) {
	cause := errors.New("disk gone")
	err := NewShapeError(ErrIOError, "reading .shp", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

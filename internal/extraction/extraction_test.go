package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailAndReset(t *testing.T) {
	s := NewService(nil)
	_, ok := s.Failure()
	assert.False(t, ok)

	s.Fail("Failed Loading Page")
	f, ok := s.Failure()
	assert.True(t, ok)
	assert.Equal(t, "Failed Loading Page", f.Reason)
	assert.False(t, f.At.IsZero())

	s.Reset()
	_, ok = s.Failure()
	assert.False(t, ok)
}

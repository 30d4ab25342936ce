package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemIsUTC(t *testing.T) {
	now := System{}.Now()
	assert.Equal(t, time.UTC, now.Location())
}

func TestFakeAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	c := NewFake(start)
	assert.Equal(t, start, c.Now())

	c.Advance(30 * time.Minute)
	assert.Equal(t, start.Add(30*time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDenied(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	res := Denied(10, now, now.Add(1500*time.Millisecond))
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 2, res.RetryAfter)

	res = Denied(10, now, now)
	assert.Equal(t, 1, res.RetryAfter, "retry-after never drops below one second")
}

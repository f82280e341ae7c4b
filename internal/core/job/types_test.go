package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusQueued, StatusRunning, true},
		{StatusQueued, StatusError, true},
		{StatusQueued, StatusCancelled, true},
		{StatusQueued, StatusDone, false},
		{StatusRunning, StatusDone, true},
		{StatusRunning, StatusError, true},
		{StatusRunning, StatusCancelled, true},
		{StatusRunning, StatusQueued, false},
		{StatusDone, StatusRunning, false},
		{StatusDone, StatusError, false},
		{StatusError, StatusRunning, false},
		{StatusError, StatusQueued, false},
		{StatusCancelled, StatusRunning, false},
		{StatusCancelled, StatusQueued, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusQueued.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("paused").Valid())
	assert.False(t, Status("").Valid())
}

func TestClone(t *testing.T) {
	j := &Job{ID: "x", Status: StatusRunning, Progress: 50}
	c := j.Clone()
	c.Progress = 75
	assert.Equal(t, float64(50), j.Progress)
	assert.Equal(t, "x", c.ID)
}

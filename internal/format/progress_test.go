package format

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerEmptyRender(t *testing.T) {
	tr := NewProgressTracker()
	assert.Equal(t, "Working...", tr.Render())
}

func TestProgressTrackerWindow(t *testing.T) {
	tr := NewProgressTracker()
	for i := 1; i <= 8; i++ {
		tr.Add(fmt.Sprintf("step %d", i))
	}

	out := tr.Render()
	assert.NotContains(t, out, "step 3")
	assert.Contains(t, out, "step 4")
	assert.Contains(t, out, "step 8")
	// Oldest of the window renders first.
	assert.Less(t, strings.Index(out, "step 4"), strings.Index(out, "step 8"))
	assert.Equal(t, 8, tr.Count())
}

func TestProgressTrackerIgnoresBlankLines(t *testing.T) {
	tr := NewProgressTracker()
	tr.Add("   ")
	tr.Add("")
	assert.Equal(t, 0, tr.Count())
}

func TestShouldEditThrottles(t *testing.T) {
	tr := NewProgressTracker()
	base := time.Now()

	assert.True(t, tr.ShouldEdit(base))
	assert.False(t, tr.ShouldEdit(base.Add(500*time.Millisecond)))
	assert.False(t, tr.ShouldEdit(base.Add(1900*time.Millisecond)))
	assert.True(t, tr.ShouldEdit(base.Add(2100*time.Millisecond)))
}

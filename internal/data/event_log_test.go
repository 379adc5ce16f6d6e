package data

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessedLog_MarkAndContains(t *testing.T) {
	l := NewProcessedLog()

	assert.False(t, l.Contains("req-1-credit_approved-9"))
	assert.True(t, l.Mark("req-1-credit_approved-9"))
	assert.True(t, l.Contains("req-1-credit_approved-9"))

	// Second mark of the same key is rejected
	assert.False(t, l.Mark("req-1-credit_approved-9"))
	assert.Equal(t, 1, l.Len())
}

func TestProcessedLog_Unmark(t *testing.T) {
	l := NewProcessedLog()

	l.Mark("req-1-credit_approved-9")
	l.Unmark("req-1-credit_approved-9")

	assert.False(t, l.Contains("req-1-credit_approved-9"))
	// Key becomes eligible again after unmark
	assert.True(t, l.Mark("req-1-credit_approved-9"))
}

func TestProcessedLog_CleanupBelowThreshold(t *testing.T) {
	l := NewProcessedLog()

	for i := 0; i < 100; i++ {
		l.Mark(fmt.Sprintf("req-%d", i))
	}

	// At exactly the threshold there is nothing to trim
	assert.Equal(t, 0, l.Cleanup())
	assert.Equal(t, 100, l.Len())
}

func TestProcessedLog_CleanupTrimsToFifty(t *testing.T) {
	l := NewProcessedLog()

	for i := 0; i < 120; i++ {
		l.Mark(fmt.Sprintf("req-%d", i))
	}

	evicted := l.Cleanup()
	assert.Equal(t, 70, evicted)
	assert.Equal(t, 50, l.Len())

	// The most recently marked keys are retained...
	for i := 70; i < 120; i++ {
		assert.True(t, l.Contains(fmt.Sprintf("req-%d", i)), "expected req-%d to be retained", i)
	}
	// ...and the oldest are gone
	for i := 0; i < 70; i++ {
		assert.False(t, l.Contains(fmt.Sprintf("req-%d", i)), "expected req-%d to be evicted", i)
	}
}

func TestProcessedLog_CleanupRetainedKeysStayDeduplicated(t *testing.T) {
	l := NewProcessedLog()

	for i := 0; i < 120; i++ {
		l.Mark(fmt.Sprintf("req-%d", i))
	}
	l.Cleanup()

	// Retained entries are still treated as already processed
	assert.False(t, l.Mark("req-119"))
}

func TestProcessedLog_HardCapacityBound(t *testing.T) {
	l := NewProcessedLog()

	for i := 0; i < 500; i++ {
		l.Mark(fmt.Sprintf("req-%d", i))
	}

	// The LRU hard bound holds even without a cleanup pass
	assert.LessOrEqual(t, l.Len(), 256)
}

func TestProcessedLog_Clear(t *testing.T) {
	l := NewProcessedLog()

	l.Mark("a")
	l.Mark("b")
	l.Clear()

	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Contains("a"))
}

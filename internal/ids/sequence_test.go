package ids

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func frozen(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNext_SameMillisecondStaysUnique(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	s := NewSequence(frozen(now))

	a, b, c := s.Next(), s.Next(), s.Next()

	assert.Equal(t, now.UnixMilli(), a)
	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)
}

func TestNext_FollowsClockWhenItMovesAhead(t *testing.T) {
	current := time.UnixMilli(1_000)
	s := NewSequence(func() time.Time { return current })

	assert.Equal(t, int64(1_000), s.Next())
	current = time.UnixMilli(5_000)
	assert.Equal(t, int64(5_000), s.Next())
}

func TestObserve_SkipsPastKnownIDs(t *testing.T) {
	s := NewSequence(frozen(time.UnixMilli(100)))
	s.Observe(500)
	s.Observe(200)

	assert.Equal(t, int64(501), s.Next())
}

func TestNext_ConcurrentCallersNeverCollide(t *testing.T) {
	s := NewSequence(frozen(time.UnixMilli(42)))

	const n = 200
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.Next()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

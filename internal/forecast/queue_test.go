package forecast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchQueueRunsInOrder(t *testing.T) {
	q := newDispatchQueue()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		assert.True(t, q.post(func() { got = append(got, i) }))
	}
	q.close()

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestDispatchQueueConcurrentPosters(t *testing.T) {
	q := newDispatchQueue()

	var (
		wg      sync.WaitGroup
		running int
		maxSeen int
		total   int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.post(func() {
					running++
					if running > maxSeen {
						maxSeen = running
					}
					total++
					running--
				})
			}
		}()
	}
	wg.Wait()
	q.close()

	assert.Equal(t, 400, total)
	assert.Equal(t, 1, maxSeen)
}

func TestDispatchQueueRejectsAfterClose(t *testing.T) {
	q := newDispatchQueue()
	q.close()
	assert.False(t, q.post(func() { t.Error("ran after close") }))
}

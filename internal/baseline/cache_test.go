package baseline

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheGetPut(t *testing.T) {
	c := NewCache()

	_, ok := c.Get("grid")
	assert.False(t, ok)

	rec := StatusRecord{Status: StatusWidely, LowDate: "2020-01-15"}
	c.Put("grid", rec)

	got, ok := c.Get("grid")
	assert.True(t, ok)
	assert.Equal(t, rec, got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheConcurrentWrites(t *testing.T) {
	c := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := fmt.Sprintf("feature-%d", j)
				// Identical inputs yield identical values, so races are
				// last-write-wins and harmless.
				c.Put(id, StatusRecord{Status: StatusNewly})
				c.Get(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, c.Len())
}

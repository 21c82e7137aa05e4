package hashmap

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	m := New[int, string]()
	assert.Equal(t, 0, m.Len())
}

func TestSetAndGet(t *testing.T) {
	t.Parallel()

	m := New[int, string]()

	m.Set(1, "elephant") // insert
	value, ok := m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "elephant", value)

	m.Set(1, "monkey") // overwrite
	value, ok = m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "monkey", value)

	assert.Equal(t, 1, m.Len())

	m.Set(2, "elephant")
	assert.Equal(t, 2, m.Len())
}

func TestGetNonExistingItem(t *testing.T) {
	t.Parallel()

	m := New[int, string]()
	value, ok := m.Get(1)
	assert.False(t, ok)
	assert.Equal(t, "", value)
}

func TestGetOrSet(t *testing.T) {
	t.Parallel()

	m := New[int, string]()

	value, ok := m.GetOrSet(1, "1")
	assert.False(t, ok)
	assert.Equal(t, "1", value)

	// the stored value wins over the proposed one
	value, ok = m.GetOrSet(1, "2")
	assert.True(t, ok)
	assert.Equal(t, "1", value)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	m := New[int, string]()

	assert.False(t, m.Delete(1))

	m.Set(1, "elephant")
	m.Set(2, "monkey")

	assert.False(t, m.Delete(0))
	assert.False(t, m.Delete(3))
	assert.Equal(t, 2, m.Len())

	assert.True(t, m.Delete(1))
	assert.False(t, m.Delete(1))
	assert.True(t, m.Delete(2))
	assert.Equal(t, 0, m.Len())
}

func TestRange(t *testing.T) {
	t.Parallel()

	m := New[int, string]()

	items := map[int]string{}
	m.Range(func(key int, value string) bool {
		items[key] = value
		return true
	})
	assert.Empty(t, items)

	itemCount := 16
	for i := itemCount; i > 0; i-- {
		m.Set(i, strconv.Itoa(i))
	}

	items = map[int]string{}
	m.Range(func(key int, value string) bool {
		items[key] = value
		return true
	})
	require.Len(t, items, itemCount)
	for i := 1; i <= itemCount; i++ {
		assert.Equal(t, strconv.Itoa(i), items[i])
	}

	// returning false aborts the walk
	items = map[int]string{}
	m.Range(func(key int, value string) bool {
		items[key] = value
		return false
	})
	assert.Len(t, items, 1)
}

func TestSetConcurrent(t *testing.T) {
	t.Parallel()

	m := New[string, int]()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			m.Set(strconv.Itoa(i), i)

			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				m.Get(strconv.Itoa(i))
			}(i)
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 100, m.Len())
}

// TestRangeDuringWrites hammers the map with writers while ranging over it.
// Every observed entry must be internally consistent.
func TestRangeDuringWrites(t *testing.T) {
	t.Parallel()

	m := New[int, int]()
	for i := 0; i < 8; i++ {
		m.Set(i, i)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for i := 0; i < 8; i++ {
					m.Set(i, i)
					m.GetOrSet(i, i)
				}
			}
		}(w)
	}

	for r := 0; r < 1000; r++ {
		seen := 0
		m.Range(func(key, value int) bool {
			require.Equal(t, key, value)
			seen++
			return true
		})
		require.Equal(t, 8, seen)
	}

	close(done)
	wg.Wait()
}

package syncmap_test

import (
	"slices"
	"testing"

	"github.com/WelcomerTeam/Raid-Daemon/pkg/syncmap"
	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	t.Parallel()

	var m syncmap.Map[int, string]

	m.Store(1, "a")
	m.Store(1, "b")
	m.Store(2, "c")
	assert.Equal(t, 2, m.Count())

	value, ok := m.Load(1)
	assert.True(t, ok)
	assert.Equal(t, "b", value)

	actual, loaded := m.LoadOrStore(2, "d")
	assert.True(t, loaded)
	assert.Equal(t, "c", actual)

	actual, loaded = m.LoadOrStore(3, "e")
	assert.False(t, loaded)
	assert.Equal(t, "e", actual)
	assert.Equal(t, 3, m.Count())

	keys := m.Keys()
	slices.Sort(keys)
	assert.Equal(t, []int{1, 2, 3}, keys)

	m.Delete(1)
	m.Delete(1)
	assert.Equal(t, 2, m.Count())

	_, ok = m.Load(1)
	assert.False(t, ok)
}

func TestMapDeleteFunc(t *testing.T) {
	t.Parallel()

	var m syncmap.Map[int, int]

	for i := 0; i < 10; i++ {
		m.Store(i, i%3)
	}

	removed := m.DeleteFunc(func(_, value int) bool {
		return value == 0
	})

	assert.Equal(t, 4, removed)
	assert.Equal(t, 6, m.Count())
}

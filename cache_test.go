package noise

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticKeyCache_PutGet(t *testing.T) {
	c := NewStaticKeyCache()
	key := [32]byte{1, 2, 3}

	_, ok := c.Get("peer-a")
	assert.False(t, ok)

	c.Put("peer-a", key)
	got, ok := c.Get("peer-a")
	assert.True(t, ok)
	assert.Equal(t, key, got)
	assert.Equal(t, 1, c.Len())
}

func TestStaticKeyCache_Reset(t *testing.T) {
	c := NewStaticKeyCache()
	c.Put("peer-a", [32]byte{1})
	c.Reset()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("peer-a")
	assert.False(t, ok)
}

func TestStaticKeyCache_ConcurrentAccess(t *testing.T) {
	c := NewStaticKeyCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := PeerID(string(rune('a' + i%26)))
			c.Put(id, [32]byte{byte(i)})
			c.Get(id)
		}(i)
	}
	wg.Wait()
}

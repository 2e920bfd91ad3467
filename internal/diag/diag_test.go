package diag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Add(Warning{Kind: DuplicateRoute, Site: "s", Rule: "/"})
	c.Add(Warning{Kind: DroppedValue, Site: "s", Rule: "/x"})
	c.Add(Warning{Kind: DroppedValue, Site: "s", Rule: "/y"})

	assert.Equal(t, 3, c.Len())
	assert.Len(t, c.ByKind(DroppedValue), 2)
	assert.Len(t, c.ByKind(DuplicateContext), 0)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Warnings())
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	c.Add(Warning{Kind: DuplicateRoute})
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Warnings())
	assert.Nil(t, c.ByKind(DuplicateRoute))
	c.Clear()
}

func TestCollector_WarningsReturnsCopy(t *testing.T) {
	c := NewCollector()
	c.Add(Warning{Kind: DuplicateRoute, Detail: "original"})

	got := c.Warnings()
	got[0].Detail = "mutated"
	assert.Equal(t, "original", c.Warnings()[0].Detail)
}

func TestCollector_ConcurrentAdd(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(Warning{Kind: DroppedValue})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: DuplicateContext, Site: "s", Rule: "/x", Module: "content.a", Detail: "later values win"}
	assert.Equal(t, "duplicate-context in content.a (s /x): later values win", w.String())

	assert.Equal(t, "dropped-value", Warning{Kind: DroppedValue}.String())
}

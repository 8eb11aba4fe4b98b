package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarokim83/filemanager/optypes"
)

func TestRegistry_RegisterAndRemove(t *testing.T) {
	r := New()

	id := r.Register(optypes.KindUpload, "docs/a.txt", func() {})
	require.NotEmpty(t, id)
	assert.Equal(t, 1, r.Len())

	entry, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, optypes.KindUpload, entry.Kind)
	assert.Equal(t, "docs/a.txt", entry.Label)

	assert.True(t, r.Remove(id))
	assert.False(t, r.Remove(id), "second remove is a no-op")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Cancel(t *testing.T) {
	tests := []struct {
		name       string
		register   bool
		wantResult bool
		wantCalls  int
	}{
		{name: "registered operation", register: true, wantResult: true, wantCalls: 1},
		{name: "unknown id", register: false, wantResult: false, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			calls := 0
			id := "nonexistent"
			if tt.register {
				id = r.Register(optypes.KindDownload, "x", func() { calls++ })
			}

			assert.NotPanics(t, func() {
				assert.Equal(t, tt.wantResult, r.Cancel(id))
			})
			assert.Equal(t, tt.wantCalls, calls)
			_, present := r.Get(id)
			assert.False(t, present)

			// A canceled id cannot be canceled again.
			assert.False(t, r.Cancel(id))
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRegistry_CancelFiresContext(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())
	id := r.Register(optypes.KindRename, "old/ -> new/", cancel)

	require.True(t, r.Cancel(id))
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}
}

func TestRegistry_RemoveAfterCancelIsNoop(t *testing.T) {
	r := New()
	id := r.Register(optypes.KindUpload, "a", func() {})

	require.True(t, r.Cancel(id))
	assert.False(t, r.Remove(id))
}

func TestRegistry_SnapshotOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r := New(WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))

	first := r.Register(optypes.KindUpload, "one", nil)
	second := r.Register(optypes.KindDownload, "two", nil)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, first, snap[0].ID)
	assert.Equal(t, second, snap[1].ID)
}

func TestRegistry_IDsAreUnique(t *testing.T) {
	r := New()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := r.Register(optypes.KindUpload, fmt.Sprintf("obj-%d", i), nil)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRegistry_DuplicateIDIsRegenerated(t *testing.T) {
	r := New()
	ids := []string{"fixed", "fixed", "other"}
	r.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	assert.Equal(t, "fixed", r.Register(optypes.KindUpload, "a", nil))
	assert.Equal(t, "other", r.Register(optypes.KindUpload, "b", nil))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Register(optypes.KindUpload, "x", func() {})
			if i%2 == 0 {
				r.Cancel(id)
			} else {
				r.Remove(id)
			}
			r.Snapshot()
		}()
	}

	wg.Wait()
	assert.Equal(t, 0, r.Len())
}

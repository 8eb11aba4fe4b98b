package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarokim83/filemanager/objstore"
)

func TestMemStore_Conformance(t *testing.T) {
	RunStoreSuite(t, NewMemStore())
}

func TestMemStore_Hooks(t *testing.T) {
	store := NewMemStore()
	store.Put("a", []byte("x"))
	boom := errors.New("boom")
	store.CopyHook = func(src, _ string) error {
		if src == "a" {
			return boom
		}
		return nil
	}

	err := store.Copy(context.Background(), "a", "b")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, store.Names())
	assert.Equal(t, 1, store.CallCount("copy"))
}

func TestMemStore_CanceledContext(t *testing.T) {
	store := NewMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.List(ctx, objstore.ListInput{})
	require.ErrorIs(t, err, context.Canceled)
}

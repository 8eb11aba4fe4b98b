package testutil

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/objstore"
)

// RunStoreSuite checks the behavior every objstore.Store must share. The
// store must start empty.
func RunStoreSuite(t *testing.T, store objstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("save and read back", func(t *testing.T) {
		data := []byte("hello, bucket")
		require.NoError(t, store.Save(ctx, "roundtrip/a.txt", data, objstore.WriterOptions{ContentType: "text/plain"}))

		ok, err := store.Exists(ctx, "roundtrip/a.txt")
		require.NoError(t, err)
		assert.True(t, ok)

		info, err := store.Metadata(ctx, "roundtrip/a.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), info.Size)
		assert.Contains(t, info.ContentType, "text/plain")

		assert.Equal(t, data, readAll(t, store, "roundtrip/a.txt"))
	})

	t.Run("missing object", func(t *testing.T) {
		ok, err := store.Exists(ctx, "missing/a.txt")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.Metadata(ctx, "missing/a.txt")
		assert.True(t, fmerrors.IsNotFound(err), "metadata: %v", err)

		_, err = store.NewReader(ctx, "missing/a.txt")
		assert.True(t, fmerrors.IsNotFound(err), "reader: %v", err)

		err = store.Delete(ctx, "missing/a.txt", false)
		assert.True(t, fmerrors.IsNotFound(err), "delete: %v", err)
		assert.NoError(t, store.Delete(ctx, "missing/a.txt", true))

		err = store.Copy(ctx, "missing/a.txt", "missing/b.txt")
		assert.True(t, fmerrors.IsNotFound(err), "copy: %v", err)
	})

	t.Run("streaming writer", func(t *testing.T) {
		data := bytes.Repeat([]byte("0123456789abcdef"), 4096)
		w, err := store.NewWriter(ctx, "stream/blob.bin", objstore.WriterOptions{})
		require.NoError(t, err)
		_, err = io.Copy(w, bytes.NewReader(data))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		assert.Equal(t, data, readAll(t, store, "stream/blob.bin"))
	})

	t.Run("abandoned writer stores nothing", func(t *testing.T) {
		w, err := store.NewWriter(ctx, "abandoned/a.txt", objstore.WriterOptions{})
		require.NoError(t, err)
		_, err = w.Write([]byte("partial"))
		require.NoError(t, err)
		require.NoError(t, w.CloseWithError(context.Canceled))

		ok, err := store.Exists(ctx, "abandoned/a.txt")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("folder listing", func(t *testing.T) {
		for _, name := range []string{"dir/a.txt", "dir/sub/b.txt", "dir/sub/c.txt"} {
			require.NoError(t, store.Save(ctx, name, []byte(name), objstore.WriterOptions{}))
		}

		page, err := store.List(ctx, objstore.ListInput{Prefix: "dir/", Delimiter: objstore.Separator})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "dir/a.txt", page.Items[0].Name)
		assert.Equal(t, []string{"dir/sub/"}, page.Prefixes)
		assert.Empty(t, page.NextPageToken)
	})

	t.Run("pagination", func(t *testing.T) {
		for _, name := range []string{"page/1", "page/2", "page/3", "page/4", "page/5"} {
			require.NoError(t, store.Save(ctx, name, []byte("x"), objstore.WriterOptions{}))
		}

		first, err := store.List(ctx, objstore.ListInput{Prefix: "page/", MaxResults: 2})
		require.NoError(t, err)
		assert.Len(t, first.Items, 2)
		assert.NotEmpty(t, first.NextPageToken)

		var names []string
		p := objstore.NewPaginator(store, objstore.ListInput{Prefix: "page/", MaxResults: 2})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			require.NoError(t, err)
			for _, item := range page.Items {
				names = append(names, item.Name)
			}
		}
		assert.Equal(t, []string{"page/1", "page/2", "page/3", "page/4", "page/5"}, names)
	})

	t.Run("copy and delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "copy/src.txt", []byte("payload"), objstore.WriterOptions{}))
		require.NoError(t, store.Copy(ctx, "copy/src.txt", "copy/dest.txt"))
		require.NoError(t, store.Delete(ctx, "copy/src.txt", false))

		ok, err := store.Exists(ctx, "copy/src.txt")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []byte("payload"), readAll(t, store, "copy/dest.txt"))
	})

	t.Run("delete all with prefix", func(t *testing.T) {
		for _, name := range []string{"wipe/a", "wipe/b/c", "wipe-other"} {
			require.NoError(t, store.Save(ctx, name, []byte("x"), objstore.WriterOptions{}))
		}
		require.NoError(t, store.Save(ctx, "wipe/", nil, objstore.WriterOptions{}))

		report, err := store.DeleteAllWithPrefix(ctx, "wipe/")
		require.NoError(t, err)
		require.NoError(t, report.Err())
		assert.Equal(t, 3, report.Deleted)

		found, err := objstore.HasAny(ctx, store, "wipe/")
		require.NoError(t, err)
		assert.False(t, found)

		ok, err := store.Exists(ctx, "wipe-other")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("empty folder marker", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "marker/", nil, objstore.WriterOptions{}))

		info, err := store.Metadata(ctx, "marker/")
		require.NoError(t, err)
		assert.Equal(t, int64(0), info.Size)
	})
}

func readAll(t *testing.T, store objstore.Store, name string) []byte {
	t.Helper()
	r, err := store.NewReader(context.Background(), name)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

package rename

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/internal/testutil"
	"github.com/yarokim83/filemanager/optypes"
)

func seed(store *testutil.MemStore, names ...string) {
	for _, n := range names {
		store.Put(n, []byte("data:"+n))
	}
}

func TestRenameObject(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		src       string
		dest      string
		overwrite bool
		wantErr   func(error) bool
		wantNames []string
	}{
		{
			name:      "moves object",
			existing:  []string{"a.txt"},
			src:       "a.txt",
			dest:      "b.txt",
			wantNames: []string{"b.txt"},
		},
		{
			name:      "missing source",
			src:       "a.txt",
			dest:      "b.txt",
			wantErr:   fmerrors.IsNotFound,
			wantNames: []string{},
		},
		{
			name:      "conflict without overwrite",
			existing:  []string{"a.txt", "b.txt"},
			src:       "a.txt",
			dest:      "b.txt",
			wantErr:   fmerrors.IsConflict,
			wantNames: []string{"a.txt", "b.txt"},
		},
		{
			name:      "overwrite replaces destination",
			existing:  []string{"a.txt", "b.txt"},
			src:       "a.txt",
			dest:      "b.txt",
			overwrite: true,
			wantNames: []string{"b.txt"},
		},
		{
			name:      "same name",
			existing:  []string{"a.txt"},
			src:       "a.txt",
			dest:      "a.txt",
			wantErr:   fmerrors.IsInvalidInput,
			wantNames: []string{"a.txt"},
		},
		{
			name:      "empty destination",
			existing:  []string{"a.txt"},
			src:       "a.txt",
			wantErr:   fmerrors.IsInvalidInput,
			wantNames: []string{"a.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemStore()
			seed(store, tt.existing...)

			got, err := New(store).RenameObject(context.Background(), tt.src, tt.dest, tt.overwrite)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.dest, got)
			}
			assert.ElementsMatch(t, tt.wantNames, store.Names())
		})
	}
}

func TestRenameObject_ContentMoves(t *testing.T) {
	store := testutil.NewMemStore()
	store.Put("old/report.csv", []byte("1,2,3"))

	_, err := New(store).RenameObject(context.Background(), "old/report.csv", "new/report.csv", false)
	require.NoError(t, err)

	data, ok := store.Get("new/report.csv")
	require.True(t, ok)
	assert.Equal(t, []byte("1,2,3"), data)
}

func TestRenameObject_ConflictMessage(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store, "a", "b")

	_, err := New(store).RenameObject(context.Background(), "a", "b", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "an object with the same name already exists: b")
	assert.Zero(t, store.CallCount("copy"))
}

func TestPreparePrefix(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		src       string
		dest      string
		overwrite bool
		wantErr   func(error) bool
		wantNoop  bool
	}{
		{
			name:     "normalizes separators",
			existing: []string{"a/x"},
			src:      "a",
			dest:     "b",
		},
		{
			name:     "same prefix is noop",
			existing: []string{"a/x"},
			src:      "a",
			dest:     "a/",
			wantNoop: true,
		},
		{
			name:    "empty source",
			src:     "/",
			dest:    "b/",
			wantErr: fmerrors.IsInvalidInput,
		},
		{
			name:     "nested destination",
			existing: []string{"a/x"},
			src:      "a/",
			dest:     "a/b/",
			wantErr:  fmerrors.IsInvalidInput,
		},
		{
			name:     "nested source",
			existing: []string{"a/b/x"},
			src:      "a/b/",
			dest:     "a/",
			wantErr:  fmerrors.IsInvalidInput,
		},
		{
			name:    "missing source",
			src:     "a/",
			dest:    "b/",
			wantErr: fmerrors.IsNotFound,
		},
		{
			name:     "destination taken",
			existing: []string{"a/x", "b/y"},
			src:      "a/",
			dest:     "b/",
			wantErr:  fmerrors.IsConflict,
		},
		{
			name:      "destination cleared on overwrite",
			existing:  []string{"a/x", "b/y"},
			src:       "a/",
			dest:      "b/",
			overwrite: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemStore()
			seed(store, tt.existing...)

			plan, err := New(store).PreparePrefix(context.Background(), tt.src, tt.dest, tt.overwrite)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				assert.ElementsMatch(t, tt.existing, store.Names())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNoop, plan.Noop)
			assert.Regexp(t, "/$", plan.Src)
			assert.Regexp(t, "/$", plan.Dest)
			if tt.overwrite {
				assert.Equal(t, []string{"a/x"}, store.Names())
			}
		})
	}
}

func TestRenamePrefix_SamePrefixTouchesNothing(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store, "p/1", "p/2")

	res, err := New(store).RenamePrefix(context.Background(), "p", "p/", false)
	require.NoError(t, err)
	assert.False(t, res.Renamed)
	assert.Equal(t, SamePrefixMessage, res.Message)
	assert.Empty(t, store.Calls())
}

func TestRenamePrefix_MovesEverything(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store, "old/", "old/a.txt", "old/sub/b.txt", "other/c.txt")

	res, err := New(store).RenamePrefix(context.Background(), "old/", "new/", false)
	require.NoError(t, err)
	assert.True(t, res.Renamed)
	assert.Equal(t, 3, res.Copied)
	assert.Empty(t, res.Failed)
	assert.Empty(t, res.Message)
	assert.ElementsMatch(t, []string{"new/", "new/a.txt", "new/sub/b.txt", "other/c.txt"}, store.Names())

	data, ok := store.Get("new/sub/b.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("data:old/sub/b.txt"), data)
}

func TestRenamePrefix_PartialFailure(t *testing.T) {
	for _, policy := range []optypes.CleanupPolicy{optypes.CleanupCopied, optypes.CleanupPrefix} {
		t.Run(string(policy), func(t *testing.T) {
			store := testutil.NewMemStore()
			const n = 5
			for i := range n {
				store.Put(fmt.Sprintf("src/%d", i), []byte{byte(i)})
			}
			store.CopyHook = func(src, _ string) error {
				if src == "src/2" {
					return errors.New("copy refused")
				}
				return nil
			}

			res, err := New(store, WithCleanupPolicy(policy)).RenamePrefix(context.Background(), "src", "dst", false)
			require.NoError(t, err)
			assert.True(t, res.Renamed)
			assert.Equal(t, n-1, res.Copied)
			require.Len(t, res.Failed, 1)
			assert.Equal(t, "src/2", res.Failed[0].Src)
			assert.Contains(t, res.Failed[0].Error, "copy refused")
			assert.Contains(t, res.Message, "1 of 5")

			_, copiedStill := store.Get("src/0")
			assert.False(t, copiedStill, "copied sources are cleaned up")

			_, failedKept := store.Get("src/2")
			if policy == optypes.CleanupCopied {
				assert.True(t, failedKept, "failed source survives copied-only cleanup")
				assert.Zero(t, store.CallCount("deleteAll"))
			} else {
				assert.False(t, failedKept, "prefix cleanup removes everything under the source")
				assert.Equal(t, 1, store.CallCount("deleteAll"))
			}
		})
	}
}

func TestRenamePrefix_CleanupErrorsAreIgnored(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store, "a/1", "a/2")
	store.DeleteHook = func(string) error { return errors.New("permission denied") }

	res, err := New(store).RenamePrefix(context.Background(), "a", "b", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Copied)
	assert.Equal(t, 2, store.CallCount("delete"))
}

func TestExecute_CountsCleanupFailures(t *testing.T) {
	tests := []struct {
		name   string
		policy optypes.CleanupPolicy
		setup  func(store *testutil.MemStore)
		want   int
	}{
		{
			name:   "copied cleanup all clean",
			policy: optypes.CleanupCopied,
			setup:  func(*testutil.MemStore) {},
			want:   0,
		},
		{
			name:   "copied cleanup one refused",
			policy: optypes.CleanupCopied,
			setup: func(store *testutil.MemStore) {
				store.DeleteHook = func(name string) error {
					if name == "s/2" {
						return errors.New("permission denied")
					}
					return nil
				}
			},
			want: 1,
		},
		{
			name:   "prefix cleanup fails outright",
			policy: optypes.CleanupPrefix,
			setup: func(store *testutil.MemStore) {
				store.DeleteAllHook = func(string) error { return errors.New("bucket locked") }
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemStore()
			seed(store, "s/1", "s/2", "s/3")
			tt.setup(store)

			o := New(store, WithCleanupPolicy(tt.policy))
			plan, err := o.PreparePrefix(context.Background(), "s", "t", false)
			require.NoError(t, err)

			summary, err := o.Execute(context.Background(), plan, nil)
			require.NoError(t, err)
			assert.Equal(t, 3, summary.Copied)
			assert.Equal(t, tt.want, summary.CleanupFailures)
		})
	}
}

func TestRenamePrefix_ConflictLeavesSource(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store, "a/1", "b/1")

	_, err := New(store).RenamePrefix(context.Background(), "a/", "b/", false)
	require.Error(t, err)
	assert.True(t, fmerrors.IsConflict(err))
	assert.Zero(t, store.CallCount("copy"))
	assert.ElementsMatch(t, []string{"a/1", "b/1"}, store.Names())
}

func TestExecute_ReportsEveryStep(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store, "s/1", "s/2", "s/3")
	store.CopyHook = func(src, _ string) error {
		if src == "s/1" {
			return errors.New("nope")
		}
		return nil
	}

	o := New(store)
	plan, err := o.PreparePrefix(context.Background(), "s", "t", false)
	require.NoError(t, err)

	var steps []Step
	summary, err := o.Execute(context.Background(), plan, func(s Step) { steps = append(steps, s) })
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)

	require.Len(t, steps, 3)
	for i, s := range steps {
		assert.Equal(t, i+1, s.Count)
		assert.Equal(t, 3, s.Total)
		assert.Equal(t, 1, s.FailedCount)
	}
	assert.Equal(t, "s/1", steps[0].Current)
}

func TestExecute_CancelSkipsCleanup(t *testing.T) {
	store := testutil.NewMemStore()
	seed(store, "s/1", "s/2", "s/3")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := New(store)
	plan, err := o.PreparePrefix(ctx, "s", "t", false)
	require.NoError(t, err)

	summary, err := o.Execute(ctx, plan, func(s Step) {
		if s.Count == 1 {
			cancel()
		}
	})
	require.Error(t, err)
	assert.True(t, fmerrors.IsCanceled(err))
	assert.Equal(t, 1, summary.Copied)
	assert.Zero(t, store.CallCount("delete"))
	assert.Zero(t, store.CallCount("deleteAll"))

	for _, n := range []string{"s/1", "s/2", "s/3"} {
		_, ok := store.Get(n)
		assert.True(t, ok, "%s must survive cancellation", n)
	}
}

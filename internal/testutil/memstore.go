package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/objstore"
)

// MemStore is an in-memory objstore.Store. The hook fields inject faults or
// block individual calls. They run outside the store's lock and must be set
// before the store is shared.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	calls   []string
	now     func() time.Time

	// CopyHook runs before a copy; a non-nil error fails it.
	CopyHook func(src, dest string) error

	// DeleteHook runs before a single-object delete.
	DeleteHook func(name string) error

	// DeleteAllHook runs before a prefix delete.
	DeleteAllHook func(prefix string) error

	// ListHook runs before every list call.
	ListHook func(in objstore.ListInput) error

	// ReadHook runs before every Read on a reader; it may block.
	ReadHook func(ctx context.Context, name string) error

	// WriteHook runs before every Write on a writer; it may block.
	WriteHook func(ctx context.Context, name string) error

	// ReadChunk caps the bytes returned by a single Read. Zero means no cap.
	ReadChunk int
}

type memObject struct {
	data        []byte
	contentType string
	updated     time.Time
}

var _ objstore.Store = (*MemStore)(nil)

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string]memObject),
		now:     time.Now,
	}
}

// Put stores data under name without recording a call.
func (m *MemStore) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = memObject{data: bytes.Clone(data), updated: m.now()}
}

// Get returns a copy of the stored data.
func (m *MemStore) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[name]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// Names returns every stored name in sorted order.
func (m *MemStore) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calls returns the recorded calls as "op:arg" strings.
func (m *MemStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many calls of op were made.
func (m *MemStore) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.HasPrefix(c, op+":") {
			n++
		}
	}
	return n
}

func (m *MemStore) record(op, arg string) {
	m.calls = append(m.calls, op+":"+arg)
}

func (m *MemStore) note(op, arg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(op, arg)
}

func notFound(op, name string) error {
	return fmerrors.NewObjectError(op, name, fmerrors.ErrNotFound)
}

// Exists reports whether name exists.
func (m *MemStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("exists", name)
	_, ok := m.objects[name]
	return ok, nil
}

// List returns a page of objects. Page tokens are the last name returned.
func (m *MemStore) List(ctx context.Context, in objstore.ListInput) (*objstore.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.note("list", in.Prefix)
	if m.ListHook != nil {
		if err := m.ListHook(in); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	type entry struct {
		key      string
		isPrefix bool
	}
	seen := make(map[string]bool)
	var entries []entry
	for name := range m.objects {
		if !strings.HasPrefix(name, in.Prefix) {
			continue
		}
		if in.Delimiter != "" {
			rest := name[len(in.Prefix):]
			if i := strings.Index(rest, in.Delimiter); i >= 0 {
				p := in.Prefix + rest[:i+len(in.Delimiter)]
				if !seen[p] {
					seen[p] = true
					entries = append(entries, entry{key: p, isPrefix: true})
				}
				continue
			}
		}
		entries = append(entries, entry{key: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	limit := in.MaxResults
	if limit <= 0 {
		limit = objstore.DefaultPageSize
	}

	page := &objstore.ListPage{}
	count := 0
	for _, e := range entries {
		if in.PageToken != "" && e.key <= in.PageToken {
			continue
		}
		if count == limit {
			page.NextPageToken = lastKey(page)
			break
		}
		count++
		if e.isPrefix {
			page.Prefixes = append(page.Prefixes, e.key)
			continue
		}
		obj := m.objects[e.key]
		page.Items = append(page.Items, objstore.ObjectInfo{
			Name:        e.key,
			Size:        int64(len(obj.data)),
			Updated:     obj.updated,
			ContentType: obj.contentType,
		})
	}
	return page, nil
}

func lastKey(page *objstore.ListPage) string {
	var last string
	if n := len(page.Items); n > 0 {
		last = page.Items[n-1].Name
	}
	if n := len(page.Prefixes); n > 0 && page.Prefixes[n-1] > last {
		last = page.Prefixes[n-1]
	}
	return last
}

// Metadata returns the attributes of name.
func (m *MemStore) Metadata(ctx context.Context, name string) (*objstore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("metadata", name)
	obj, ok := m.objects[name]
	if !ok {
		return nil, notFound("metadata", name)
	}
	return &objstore.ObjectInfo{
		Name:        name,
		Size:        int64(len(obj.data)),
		Updated:     obj.updated,
		ContentType: obj.contentType,
	}, nil
}

// Copy duplicates src as dest.
func (m *MemStore) Copy(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.note("copy", src+"->"+dest)
	if m.CopyHook != nil {
		if err := m.CopyHook(src, dest); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[src]
	if !ok {
		return notFound("copy", src)
	}
	obj.data = bytes.Clone(obj.data)
	obj.updated = m.now()
	m.objects[dest] = obj
	return nil
}

// Delete removes name.
func (m *MemStore) Delete(ctx context.Context, name string, ignoreNotFound bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.note("delete", name)
	if m.DeleteHook != nil {
		if err := m.DeleteHook(name); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		if ignoreNotFound {
			return nil
		}
		return notFound("delete", name)
	}
	delete(m.objects, name)
	return nil
}

// DeleteAllWithPrefix removes every object under prefix.
func (m *MemStore) DeleteAllWithPrefix(ctx context.Context, prefix string) (*objstore.DeleteReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.note("deleteAll", prefix)
	if m.DeleteAllHook != nil {
		if err := m.DeleteAllHook(prefix); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	report := &objstore.DeleteReport{}
	for name := range m.objects {
		if strings.HasPrefix(name, prefix) {
			delete(m.objects, name)
			report.Deleted++
		}
	}
	return report, nil
}

// NewReader opens a reader over a snapshot of name.
func (m *MemStore) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("read", name)

	obj, ok := m.objects[name]
	if !ok {
		return nil, notFound("read", name)
	}
	return &memReader{
		ctx:   ctx,
		name:  name,
		r:     bytes.NewReader(bytes.Clone(obj.data)),
		hook:  m.ReadHook,
		chunk: m.ReadChunk,
	}, nil
}

// NewWriter opens a writer that stores name on Close.
func (m *MemStore) NewWriter(ctx context.Context, name string, opts objstore.WriterOptions) (objstore.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("write", name)
	return &memWriter{ctx: ctx, store: m, name: name, contentType: opts.ContentType, hook: m.WriteHook}, nil
}

// Save stores data as name.
func (m *MemStore) Save(ctx context.Context, name string, data []byte, opts objstore.WriterOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("save", name)
	m.objects[name] = memObject{data: bytes.Clone(data), contentType: opts.ContentType, updated: m.now()}
	return nil
}

type memReader struct {
	ctx    context.Context
	name   string
	r      *bytes.Reader
	hook   func(ctx context.Context, name string) error
	chunk  int
	closed atomic.Bool
}

func (r *memReader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, errors.New("read on closed reader")
	}
	if r.hook != nil {
		if err := r.hook(r.ctx, r.name); err != nil {
			return 0, err
		}
	}
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if r.chunk > 0 && len(p) > r.chunk {
		p = p[:r.chunk]
	}
	return r.r.Read(p)
}

func (r *memReader) Close() error {
	r.closed.Store(true)
	return nil
}

type memWriter struct {
	ctx         context.Context
	store       *MemStore
	name        string
	contentType string
	hook        func(ctx context.Context, name string) error
	buf         bytes.Buffer
	closed      bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write on closed writer")
	}
	if w.hook != nil {
		if err := w.hook(w.ctx, w.name); err != nil {
			return 0, err
		}
	}
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	if w.closed {
		return errors.New("writer already closed")
	}
	w.closed = true
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.objects[w.name] = memObject{
		data:        bytes.Clone(w.buf.Bytes()),
		contentType: w.contentType,
		updated:     w.store.now(),
	}
	return nil
}

func (w *memWriter) CloseWithError(error) error {
	w.closed = true
	return nil
}

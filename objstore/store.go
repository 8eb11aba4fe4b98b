// Package objstore defines the object storage contract consumed by the file
// manager.
//
// Objects are addressed by name within a single bucket. Folders are emulated
// with "/"-separated name prefixes. Implementations map their native "object
// does not exist" condition to errors.ErrNotFound.
package objstore

import (
	"context"
	"io"
	"time"
)

// Separator is the folder-emulation separator in object names.
const Separator = "/"

// DefaultPageSize is the page size used when a listing does not set one.
const DefaultPageSize = 1000

// Store is the set of bucket operations the file manager relies on.
type Store interface {
	// Exists reports whether an object named name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// List returns one page of objects matching in.
	List(ctx context.Context, in ListInput) (*ListPage, error)

	// Metadata returns the stored attributes of name.
	Metadata(ctx context.Context, name string) (*ObjectInfo, error)

	// Copy performs a server-side copy. It fails with ErrNotFound if src is missing.
	Copy(ctx context.Context, src, dest string) error

	// Delete removes name. With ignoreNotFound a missing object is not an error.
	Delete(ctx context.Context, name string, ignoreNotFound bool) error

	// DeleteAllWithPrefix removes every object whose name starts with prefix.
	DeleteAllWithPrefix(ctx context.Context, prefix string) (*DeleteReport, error)

	// NewReader opens a stream over the contents of name.
	NewReader(ctx context.Context, name string) (io.ReadCloser, error)

	// NewWriter opens a stream that stores name when closed.
	NewWriter(ctx context.Context, name string, opts WriterOptions) (Writer, error)

	// Save stores data as name in one call.
	Save(ctx context.Context, name string, data []byte, opts WriterOptions) error
}

// Writer is a streaming object upload. Close commits the object;
// CloseWithError abandons it.
type Writer interface {
	io.WriteCloser

	// CloseWithError aborts the upload. Data written so far may or may not
	// become visible, depending on the backend.
	CloseWithError(err error) error
}

// WriterOptions controls how an object is stored.
type WriterOptions struct {
	// ContentType is the MIME type; backends detect one when empty
	ContentType string
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	// Name is the full object name
	Name string `json:"name"`

	// Size is the object size in bytes
	Size int64 `json:"size"`

	// Updated is when the object was last modified
	Updated time.Time `json:"updated"`

	// ContentType is the MIME type, when known
	ContentType string `json:"contentType,omitempty"`
}

// ListInput selects a page of objects.
type ListInput struct {
	Prefix     string
	Delimiter  string
	PageToken  string
	MaxResults int
}

// ListPage is one page of listing results.
type ListPage struct {
	Items []ObjectInfo

	// Prefixes holds the common prefixes when a delimiter was given
	Prefixes []string

	// NextPageToken is empty on the last page
	NextPageToken string
}

// DeleteReport summarizes a bulk delete.
type DeleteReport struct {
	Deleted int
	Errors  []DeleteError
}

// DeleteError is one object a bulk delete could not remove.
type DeleteError struct {
	Key string
	Err error
}

// Err returns the first per-object failure, or nil.
func (r *DeleteReport) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0].Err
}

// Package optypes provides shared type definitions for the file manager.
package optypes

import (
	"fmt"
	"time"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/objstore"
)

// Kind identifies what an operation does.
type Kind string

// Operation kinds
const (
	// KindUpload writes a local file or buffer to the bucket
	KindUpload Kind = "upload"

	// KindDownload reads an object into a local file
	KindDownload Kind = "download"

	// KindRename moves every object under a prefix to another prefix
	KindRename Kind = "rename"
)

// Phase is the lifecycle stage carried by a ProgressEvent.
type Phase string

// Event phases. Done and Error are terminal.
const (
	PhaseProgress Phase = "progress"
	PhaseDone     Phase = "done"
	PhaseError    Phase = "error"
)

// Terminal reports whether no further events follow a p event.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError
}

// CleanupPolicy selects which source objects a prefix rename deletes after
// the copy pass.
type CleanupPolicy string

// Cleanup policies
const (
	// CleanupCopied deletes only the source objects that were copied successfully
	CleanupCopied CleanupPolicy = "copied"

	// CleanupPrefix deletes everything under the source prefix, including
	// objects whose copy failed
	CleanupPrefix CleanupPolicy = "prefix"
)

// ParseCleanupPolicy converts a configuration value into a CleanupPolicy.
// An empty string selects CleanupCopied.
func ParseCleanupPolicy(s string) (CleanupPolicy, error) {
	switch CleanupPolicy(s) {
	case "", CleanupCopied:
		return CleanupCopied, nil
	case CleanupPrefix:
		return CleanupPrefix, nil
	default:
		return "", fmt.Errorf("%w: unknown cleanup policy %q", fmerrors.ErrInvalidInput, s)
	}
}

// Failure records one object that could not be moved.
type Failure struct {
	Src   string `json:"src"`
	Error string `json:"error"`
}

// ProgressEvent describes the state of one operation. Transfer events fill
// Transferred/Total/Percent; rename events fill Current/Count/Total/FailedCount
// and, on the terminal event, Copied and Failed.
type ProgressEvent struct {
	OpID        string    `json:"opId"`
	Kind        Kind      `json:"kind"`
	Name        string    `json:"name"`
	Phase       Phase     `json:"phase"`
	Transferred int64     `json:"transferred,omitempty"`
	Total       int64     `json:"total,omitempty"`
	Percent     int       `json:"percent"`
	Message     string    `json:"message,omitempty"`
	SavedTo     string    `json:"savedTo,omitempty"`
	Current     string    `json:"current,omitempty"`
	Count       int       `json:"count,omitempty"`
	FailedCount int       `json:"failedCount,omitempty"`
	Copied      int       `json:"copied,omitempty"`
	Failed      []Failure `json:"failed,omitempty"`
}

// Percent returns floor(done*100/total) clamped to [0,100]. An unknown or
// zero total yields 0.
func Percent(done, total int64) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return int(done * 100 / total)
}

// Summary is the aggregate outcome of a bulk copy pass.
type Summary struct {
	// Total is the number of objects attempted
	Total int

	// Copied counts successful copies
	Copied int

	// Failed lists failed objects in the order they were attempted
	Failed []Failure

	// CleanupFailures counts source deletions that failed after the copy pass
	CleanupFailures int
}

// Add records the outcome of copying src.
func (s *Summary) Add(src string, err error) {
	s.Total++
	if err != nil {
		s.Failed = append(s.Failed, Failure{Src: src, Error: err.Error()})
		return
	}
	s.Copied++
}

// PrefixResult is the outcome of a synchronous prefix rename.
type PrefixResult struct {
	Renamed bool      `json:"renamed"`
	Copied  int       `json:"copied,omitempty"`
	Failed  []Failure `json:"failed,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ListResult is one page of a bucket listing.
type ListResult struct {
	Items         []objstore.ObjectInfo `json:"items"`
	Prefixes      []string              `json:"prefixes"`
	NextPageToken string                `json:"nextPageToken,omitempty"`
}

// UploadResult is the outcome of a synchronous upload.
type UploadResult struct {
	Name        string `json:"name"`
	Overwritten bool   `json:"overwritten"`
}

// CreatePrefixResult is the outcome of creating a folder marker.
type CreatePrefixResult struct {
	Created bool   `json:"created"`
	Name    string `json:"name"`
}

// Usage reports the storage consumed under a prefix. Bytes is a decimal
// string so totals beyond int64 survive serialization.
type Usage struct {
	Bytes string `json:"bytes"`
	Count int64  `json:"count"`
}

// Operation is a snapshot of one in-flight operation.
type Operation struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Label     string    `json:"label"`
	StartedAt time.Time `json:"startedAt"`
}

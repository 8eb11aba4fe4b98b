package filemanager

import (
	"context"
	"log/slog"
	"math/big"

	fmerrors "github.com/yarokim83/filemanager/errors"
	"github.com/yarokim83/filemanager/internal/validation"
	"github.com/yarokim83/filemanager/objstore"
	"github.com/yarokim83/filemanager/optypes"
)

// ListRequest selects one page of a listing.
type ListRequest struct {
	Prefix string

	// Delimiter groups names sharing a prefix up to the next delimiter into
	// Prefixes; "/" gives a folder view, "" a flat listing
	Delimiter string

	PageToken string

	// MaxResults defaults to objstore.DefaultPageSize
	MaxResults int
}

// List returns one page of objects under req.Prefix.
func (m *Manager) List(ctx context.Context, req ListRequest) (*optypes.ListResult, error) {
	if req.MaxResults <= 0 {
		req.MaxResults = objstore.DefaultPageSize
	}

	page, err := m.store.List(ctx, objstore.ListInput{
		Prefix:     req.Prefix,
		Delimiter:  req.Delimiter,
		PageToken:  req.PageToken,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	result := &optypes.ListResult{
		Items:         page.Items,
		Prefixes:      page.Prefixes,
		NextPageToken: page.NextPageToken,
	}
	if result.Items == nil {
		result.Items = []objstore.ObjectInfo{}
	}
	if result.Prefixes == nil {
		result.Prefixes = []string{}
	}
	return result, nil
}

// Exists reports whether the object exists.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	if err := validation.ValidateObjectName(name); err != nil {
		return false, err
	}
	return m.store.Exists(ctx, name)
}

// Stat returns the metadata of an object.
func (m *Manager) Stat(ctx context.Context, name string) (*objstore.ObjectInfo, error) {
	if err := validation.ValidateObjectName(name); err != nil {
		return nil, err
	}
	return m.store.Metadata(ctx, name)
}

// Delete removes an object. It reports false when there was nothing to
// delete.
func (m *Manager) Delete(ctx context.Context, name string) (bool, error) {
	if err := validation.ValidateObjectName(name); err != nil {
		return false, err
	}
	err := m.store.Delete(ctx, name, false)
	if fmerrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	m.logger.InfoContext(ctx, "object deleted", slog.String("name", name))
	return true, nil
}

// CreatePrefix creates an empty folder marker object named prefix + "/".
// Created is false when the marker already exists.
func (m *Manager) CreatePrefix(ctx context.Context, prefix string) (*optypes.CreatePrefixResult, error) {
	if err := validation.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	name := objstore.EnsureTrailingSeparator(prefix)

	exists, err := m.store.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return &optypes.CreatePrefixResult{Created: false, Name: name}, nil
	}

	if err := m.store.Save(ctx, name, nil, objstore.WriterOptions{}); err != nil {
		return nil, err
	}
	return &optypes.CreatePrefixResult{Created: true, Name: name}, nil
}

// DeletePrefix removes every object under prefix. It reports whether
// anything was deleted.
func (m *Manager) DeletePrefix(ctx context.Context, prefix string) (bool, error) {
	if err := validation.ValidatePrefix(prefix); err != nil {
		return false, err
	}
	name := objstore.EnsureTrailingSeparator(prefix)

	report, err := m.store.DeleteAllWithPrefix(ctx, name)
	if err != nil {
		return false, err
	}
	if err := report.Err(); err != nil {
		return report.Deleted > 0, err
	}
	m.logger.InfoContext(ctx, "prefix deleted", slog.String("prefix", name), slog.Int("objects", report.Deleted))
	return report.Deleted > 0, nil
}

// BucketUsage sums the size of every object under prefix; an empty prefix
// covers the whole bucket.
func (m *Manager) BucketUsage(ctx context.Context, prefix string) (*optypes.Usage, error) {
	total := new(big.Int)
	size := new(big.Int)
	var count int64

	err := objstore.Walk(ctx, m.store, prefix, func(obj objstore.ObjectInfo) error {
		total.Add(total, size.SetInt64(obj.Size))
		count++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &optypes.Usage{Bytes: total.String(), Count: count}, nil
}

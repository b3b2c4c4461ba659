// Package media stores binary assets at an S3-compatible object store.
//
// Assets are addressed by a public id, a slash separated path without the
// file extension. The object key is
// {resource_type}/upload/{public_id}.{format} and the delivery URL is the
// key appended to the bucket's public base URL. No error crosses this
// package: every call reports its outcome in a Result.
package media

import (
	"context"
	"time"
)

// Resource types.
const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
)

// Result is the outcome of one media operation.
type Result struct {
	Success      bool
	URL          string
	PublicID     string
	ResourceType string
	Format       string
	CreatedAt    time.Time
	Error        string

	// Raw is the object store response of the last call, for logging.
	Raw any
}

// ListResult is the outcome of List.
type ListResult struct {
	Success   bool
	Resources []Result
	Error     string
}

// UpdateParams describes a replacement or a move. At least one field must
// be set.
type UpdateParams struct {
	NewFile     []byte
	NewFilename string
	NewFolder   string
	NewPublicID string
}

type Gateway interface {
	// Upload stores body under {root folder}/{folder}/{publicID}. An empty
	// publicID defaults to the filename without its extension.
	Upload(ctx context.Context, body []byte, filename, folder, publicID string) Result
	Delete(ctx context.Context, publicID, resourceType string) Result
	Rename(ctx context.Context, publicID, newPublicID, resourceType string) Result
	Update(ctx context.Context, publicID string, p UpdateParams, resourceType string) Result
	List(ctx context.Context, prefix, resourceType string, maxResults int) ListResult
}

func failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

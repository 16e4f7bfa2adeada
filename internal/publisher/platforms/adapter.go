// Package platforms holds the publishing adapters, one per external
// platform. Adapters accept a credential and post content and report
// success or a classified per-platform failure; OAuth token acquisition
// and refresh live outside this repo.
package platforms

import (
	"context"
	"fmt"
)

// Result reports a successful publish.
type Result struct {
	Platform string
	RemoteID string
}

// PublishError is an ordinary per-platform rejection (rate limit,
// missing media, expired token). Execution units catch and classify it;
// it never aborts other platforms or posts.
type PublishError struct {
	Platform   string
	StatusCode int
	Message    string
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s publish failed (status %d): %s", e.Platform, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s publish failed: %s", e.Platform, e.Message)
}

// Adapter publishes one post to one external platform. Calls must
// honor ctx cancellation; the execution unit bounds every call with a
// timeout.
type Adapter interface {
	Platform() string
	Publish(ctx context.Context, accessToken, content, imageURL string) (*Result, error)
}

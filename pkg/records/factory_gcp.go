//go:build gcp

package records

import "context"

func newGCSArchive(ctx context.Context, bucket string) (Archive, error) {
	return NewGCSArchive(ctx, bucket)
}

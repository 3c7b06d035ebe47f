//go:build !gcp

package records

import (
	"context"
	"fmt"
)

func newGCSArchive(ctx context.Context, bucket string) (Archive, error) {
	return nil, fmt.Errorf("gcs archive is not enabled in this build (use -tags gcp)")
}

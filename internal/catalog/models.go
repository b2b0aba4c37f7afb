package catalog

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/apartmentlines/audio-processing/internal/pipeline"
)

// Recording is one customer recording tracked in the catalog.
type Recording struct {
	ID          int64
	MasterID    int64
	Filename    string
	Timestamp   int64
	EAFComplete bool
	ProcessedAt *time.Time
}

// S3Key returns the object key for the recording within the configured bucket.
func (r Recording) S3Key() string {
	return fmt.Sprintf("%d/%s", r.MasterID, r.Filename)
}

// WorkItem converts the recording into a pipeline work item addressing the
// given bucket.
func (r Recording) WorkItem(bucket string) pipeline.Item {
	return pipeline.Item{
		ID:   r.ID,
		Name: r.Filename,
		URL:  fmt.Sprintf("s3://%s/%s", bucket, r.S3Key()),
	}
}

// Stem returns the filename without its extension, used to derive the names
// of sibling artifacts (diarization JSON, EAF, RTTM, UEM).
func (r Recording) Stem() string {
	base := path.Base(r.Filename)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext)
}

// Stats aggregates catalog counts for status output.
type Stats struct {
	Total       int
	Processed   int
	EAFComplete int
}

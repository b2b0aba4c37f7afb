package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/apartmentlines/audio-processing/internal/pipeline"
	"github.com/apartmentlines/audio-processing/internal/services"
)

// fileItem is one entry in a --files work list.
type fileItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LoadItemsFile reads an explicit work list from a JSON document: an array
// of {id, name, url} objects.
func LoadItemsFile(path string) ([]pipeline.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "run", "load work list", path, err)
	}
	var entries []fileItem
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "run", "parse work list", path, err)
	}
	items := make([]pipeline.Item, 0, len(entries))
	for i, entry := range entries {
		if entry.Name == "" || entry.URL == "" {
			return nil, services.Wrap(services.ErrConfiguration, "run", "parse work list",
				fmt.Sprintf("%s: entry %d missing name or url", path, i), nil)
		}
		items = append(items, pipeline.Item{ID: entry.ID, Name: entry.Name, URL: entry.URL})
	}
	return items, nil
}

// catalogItems builds the work list from cataloged recordings. Recordings
// already marked processed are skipped unless force is set.
func (r *Runner) catalogItems(ctx context.Context, force bool, limit int) ([]pipeline.Item, error) {
	recordings, err := r.store.List(ctx, r.cfg.Catalog.BatchSize, 0)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "run", "list recordings", "", err)
	}
	items := make([]pipeline.Item, 0, len(recordings))
	for _, recording := range recordings {
		if recording.ProcessedAt != nil && !force {
			continue
		}
		items = append(items, recording.WorkItem(r.cfg.S3.Bucket))
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

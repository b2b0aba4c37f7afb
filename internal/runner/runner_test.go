package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/pipeline"
	"github.com/apartmentlines/audio-processing/internal/services"
	"github.com/apartmentlines/audio-processing/internal/testsupport"
)

func openStore(t *testing.T, cfg *config.Config) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRecordings(t *testing.T, store *catalog.Store, names ...string) []catalog.Recording {
	t.Helper()
	recordings := make([]catalog.Recording, 0, len(names))
	for i, name := range names {
		recording, err := store.Add(context.Background(), int64(100+i), name, time.Now().Unix())
		if err != nil {
			t.Fatalf("add recording: %v", err)
		}
		recordings = append(recordings, *recording)
	}
	return recordings
}

func passthroughStages() (pipeline.Fetcher, pipeline.Processor) {
	fetcher := pipeline.FetcherFunc(func(_ context.Context, item pipeline.Item) (pipeline.Artifact, error) {
		return pipeline.Artifact{Item: item, LocalPath: "/tmp/" + item.Name}, nil
	})
	processor := pipeline.ProcessorFunc(func(_ context.Context, artifact pipeline.Artifact) (pipeline.Result, error) {
		return pipeline.Result{Item: artifact.Item, OutputPath: artifact.LocalPath}, nil
	})
	return fetcher, processor
}

func TestRunProcessesCatalogItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)
	recordings := seedRecordings(t, store, "one.wav", "two.wav", "three.wav")

	fetcher, processor := passthroughStages()
	runner := New(cfg, store, nil, nil, WithFetcher(fetcher), WithProcessor(processor))

	report, err := runner.Run(context.Background(), Options{SkipPreflight: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Outcome != pipeline.OutcomeCompleted {
		t.Fatalf("expected completed outcome, got %s", report.Outcome)
	}
	if report.Summary.Delivered != 3 {
		t.Fatalf("expected 3 delivered, got %+v", report.Summary)
	}
	if report.RunID == "" {
		t.Fatal("expected a run id")
	}

	for _, recording := range recordings {
		updated, err := store.GetByID(context.Background(), recording.ID)
		if err != nil {
			t.Fatalf("get recording: %v", err)
		}
		if updated.ProcessedAt == nil {
			t.Fatalf("expected recording %d to be marked processed", recording.ID)
		}
	}
}

func TestRunSkipsProcessedUnlessForced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)
	recordings := seedRecordings(t, store, "done.wav")
	if err := store.MarkProcessed(context.Background(), recordings[0].ID, time.Now()); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	fetcher, processor := passthroughStages()
	runner := New(cfg, store, nil, nil, WithFetcher(fetcher), WithProcessor(processor))

	report, err := runner.Run(context.Background(), Options{SkipPreflight: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Summary.Submitted != 0 {
		t.Fatalf("expected no items without force, got %+v", report.Summary)
	}

	report, err = runner.Run(context.Background(), Options{SkipPreflight: true, Force: true})
	if err != nil {
		t.Fatalf("forced Run returned error: %v", err)
	}
	if report.Summary.Delivered != 1 {
		t.Fatalf("expected forced run to deliver 1, got %+v", report.Summary)
	}
}

func TestRunHonorsLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)
	seedRecordings(t, store, "a.wav", "b.wav", "c.wav")

	fetcher, processor := passthroughStages()
	runner := New(cfg, store, nil, nil, WithFetcher(fetcher), WithProcessor(processor))

	report, err := runner.Run(context.Background(), Options{SkipPreflight: true, Limit: 2})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Summary.Delivered != 2 {
		t.Fatalf("expected 2 delivered, got %+v", report.Summary)
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)

	first := New(cfg, store, nil, nil)
	ok, err := first.lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("acquire first lock: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = first.lock.Unlock() })

	second := New(cfg, store, nil, nil)
	_, err = second.Run(context.Background(), Options{SkipPreflight: true})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for concurrent run, got %v", err)
	}
}

func TestRunFailsPreflightOnMissingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := openStore(t, cfg)
	if err := os.RemoveAll(cfg.Paths.DataDir); err != nil {
		t.Fatalf("remove data dir: %v", err)
	}

	runner := New(cfg, store, nil, nil)
	_, err := runner.Run(context.Background(), Options{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected preflight failure, got %v", err)
	}
}

func TestRunUsesItemsFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)

	itemsPath := filepath.Join(t.TempDir(), "items.json")
	content := `[
		{"id": 1, "name": "x.wav", "url": "s3://bucket/1/x.wav"},
		{"id": 2, "name": "y.wav", "url": "s3://bucket/2/y.wav"}
	]`
	if err := os.WriteFile(itemsPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write items file: %v", err)
	}

	var fetched []string
	fetcher := pipeline.FetcherFunc(func(_ context.Context, item pipeline.Item) (pipeline.Artifact, error) {
		fetched = append(fetched, item.URL)
		return pipeline.Artifact{Item: item, LocalPath: "/tmp/" + item.Name}, nil
	})
	processor := pipeline.ProcessorFunc(func(_ context.Context, artifact pipeline.Artifact) (pipeline.Result, error) {
		return pipeline.Result{Item: artifact.Item, OutputPath: artifact.LocalPath}, nil
	})

	runner := New(cfg, store, nil, nil, WithFetcher(fetcher), WithProcessor(processor))
	report, err := runner.Run(context.Background(), Options{SkipPreflight: true, ItemsFile: itemsPath})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Summary.Delivered != 2 {
		t.Fatalf("expected 2 delivered, got %+v", report.Summary)
	}
	if len(fetched) != 2 || fetched[0] != "s3://bucket/1/x.wav" {
		t.Fatalf("unexpected fetched urls %v", fetched)
	}
}

func TestLoadItemsFileRejectsBadEntries(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`[{"id": 1, "name": "x.wav"}]`), 0o644); err != nil {
		t.Fatalf("write items file: %v", err)
	}
	if _, err := LoadItemsFile(path); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing url, got %v", err)
	}

	if _, err := LoadItemsFile(filepath.Join(dir, "absent.json")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing file, got %v", err)
	}
}

func TestRunInterruptedOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := openStore(t, cfg)
	seedRecordings(t, store, "a.wav", "b.wav", "c.wav", "d.wav")

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := pipeline.FetcherFunc(func(_ context.Context, item pipeline.Item) (pipeline.Artifact, error) {
		return pipeline.Artifact{Item: item, LocalPath: "/tmp/" + item.Name}, nil
	})
	processed := 0
	processor := pipeline.ProcessorFunc(func(_ context.Context, artifact pipeline.Artifact) (pipeline.Result, error) {
		processed++
		if processed == 1 {
			cancel()
		}
		return pipeline.Result{Item: artifact.Item, OutputPath: artifact.LocalPath}, nil
	})

	runner := New(cfg, store, nil, nil, WithFetcher(fetcher), WithProcessor(processor))
	report, err := runner.Run(ctx, Options{SkipPreflight: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Outcome != pipeline.OutcomeInterrupted {
		t.Fatalf("expected interrupted outcome, got %s", report.Outcome)
	}
	if report.Outcome.ExitCode() != 130 {
		t.Fatalf("expected exit code 130, got %d", report.Outcome.ExitCode())
	}
}

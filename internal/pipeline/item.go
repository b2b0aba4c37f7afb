package pipeline

import (
	"context"
	"time"
)

// Item identifies one recording to fetch and process. Items are immutable;
// every stage shares the same value as it flows through the pipeline.
type Item struct {
	ID   int64
	Name string
	URL  string
}

// Artifact is the fetch stage's output: a local copy of an item's payload.
// Ownership passes to the processing stage when the artifact is staged.
type Artifact struct {
	Item      Item
	LocalPath string
}

// Result is the terminal output of a processing task.
type Result struct {
	Item       Item
	OutputPath string
	Elapsed    time.Duration
}

// Fetcher retrieves an item's payload to local storage. Calls may block for
// the duration of a download; errors are confined to the item.
type Fetcher interface {
	Fetch(ctx context.Context, item Item) (Artifact, error)
}

// Processor transforms a fetched artifact. Calls may block on CPU or
// subprocess work; errors are confined to the item.
type Processor interface {
	Process(ctx context.Context, artifact Artifact) (Result, error)
}

// Sink receives each completed result, in completion order. Sink errors are
// logged by the pipeline and never propagated.
type Sink interface {
	Accept(ctx context.Context, result Result) error
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, item Item) (Artifact, error)

func (f FetcherFunc) Fetch(ctx context.Context, item Item) (Artifact, error) {
	return f(ctx, item)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, artifact Artifact) (Result, error)

func (f ProcessorFunc) Process(ctx context.Context, artifact Artifact) (Result, error) {
	return f(ctx, artifact)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, result Result) error

func (f SinkFunc) Accept(ctx context.Context, result Result) error {
	return f(ctx, result)
}

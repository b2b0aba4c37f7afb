package report

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/services"
)

// Lister is the slice of the catalog store verification needs.
type Lister interface {
	List(ctx context.Context, batchSize, limit int) ([]catalog.Recording, error)
}

// Expectation names one artifact every cataloged recording should have.
type Expectation struct {
	Kind string
	Dir  string
	Ext  string
}

// Expectations returns the artifact layout derived from the configured
// directories, in the order reports should present them.
func Expectations(cfg *config.Config) []Expectation {
	return []Expectation{
		{Kind: "audio", Dir: cfg.Paths.DataDir, Ext: ".wav"},
		{Kind: "diarization", Dir: cfg.Paths.ResultsDir, Ext: ".json"},
		{Kind: "eaf", Dir: cfg.Paths.EAFDir, Ext: ".eaf"},
		{Kind: "rttm", Dir: cfg.Paths.RTTMDir, Ext: ".rttm"},
		{Kind: "uem", Dir: cfg.Paths.UEMDir, Ext: ".uem"},
	}
}

// Missing is one artifact a cataloged recording lacks.
type Missing struct {
	Recording catalog.Recording
	Kind      string
	Path      string
}

// VerifyReport is the outcome of a catalog-vs-filesystem sweep.
type VerifyReport struct {
	Recordings int
	Checked    int
	Missing    []Missing
}

// Complete reports whether every expected artifact was found.
func (r VerifyReport) Complete() bool {
	return len(r.Missing) == 0
}

// VerifyData checks that each cataloged recording has every expected
// artifact on disk.
func VerifyData(ctx context.Context, store Lister, cfg *config.Config) (VerifyReport, error) {
	var report VerifyReport

	recordings, err := store.List(ctx, cfg.Catalog.BatchSize, 0)
	if err != nil {
		return report, services.Wrap(services.ErrTransient, "report", "list recordings", "", err)
	}
	report.Recordings = len(recordings)

	expectations := Expectations(cfg)
	for _, recording := range recordings {
		stem := recording.Stem()
		for _, expectation := range expectations {
			report.Checked++
			path := filepath.Join(expectation.Dir, stem+expectation.Ext)
			if info, err := os.Stat(path); err != nil || info.IsDir() {
				report.Missing = append(report.Missing, Missing{
					Recording: recording,
					Kind:      expectation.Kind,
					Path:      path,
				})
			}
		}
	}
	return report, nil
}

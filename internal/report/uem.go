package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apartmentlines/audio-processing/internal/services"
)

// UEMStats summarizes the annotated regions across a UEM directory.
type UEMStats struct {
	Files    int
	Segments int
	Total    time.Duration
}

// Clock renders the total as HH:MM:SS.
func (s UEMStats) Clock() string {
	total := int(s.Total.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// Outlier is a recording whose annotated segment falls on the wrong side of
// a duration threshold.
type Outlier struct {
	WavFile string
	Seconds float64
}

// ScanUEM totals the annotated duration of every .uem file in dir.
func ScanUEM(dir string) (UEMStats, error) {
	var stats UEMStats
	err := eachUEMSegment(dir, func(stem string, seconds float64) {
		stats.Segments++
		stats.Total += time.Duration(seconds * float64(time.Second))
	}, func() {
		stats.Files++
	})
	return stats, err
}

// FilesByDuration lists recordings with an annotated segment shorter (or
// longer, when shorter is false) than threshold seconds. Each recording
// appears at most once.
func FilesByDuration(dir string, threshold float64, shorter bool) ([]Outlier, error) {
	var outliers []Outlier
	seen := make(map[string]bool)
	err := eachUEMSegment(dir, func(stem string, seconds float64) {
		match := seconds > threshold
		if shorter {
			match = seconds < threshold
		}
		if !match || seen[stem] {
			return
		}
		seen[stem] = true
		outliers = append(outliers, Outlier{WavFile: stem + ".wav", Seconds: seconds})
	}, nil)
	return outliers, err
}

// eachUEMSegment walks every segment line in every .uem file under dir. UEM
// lines carry four fields: uri, channel, start, end.
func eachUEMSegment(dir string, segment func(stem string, seconds float64), file func()) error {
	entries, err := filepath.Glob(filepath.Join(dir, "*.uem"))
	if err != nil {
		return services.Wrap(services.ErrValidation, "report", "scan uem directory", dir, err)
	}
	for _, path := range entries {
		if file != nil {
			file()
		}
		if err := scanUEMFile(path, segment); err != nil {
			return err
		}
	}
	return nil
}

func scanUEMFile(path string, segment func(stem string, seconds float64)) error {
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "report", "open uem file", path, err)
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return services.Wrap(services.ErrValidation, "report", "parse uem file",
				fmt.Sprintf("%s:%d: expected 4 fields, got %d", path, lineNo, len(fields)), nil)
		}
		start, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return services.Wrap(services.ErrValidation, "report", "parse uem file",
				fmt.Sprintf("%s:%d: bad start", path, lineNo), err)
		}
		end, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return services.Wrap(services.ErrValidation, "report", "parse uem file",
				fmt.Sprintf("%s:%d: bad end", path, lineNo), err)
		}
		segment(stem, end-start)
	}
	if err := scanner.Err(); err != nil {
		return services.Wrap(services.ErrValidation, "report", "read uem file", path, err)
	}
	return nil
}

package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/deps"
)

// statfs is swapped out in tests.
var statfs = realStatfs

func realStatfs(path string) (free uint64, total uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	blockSize := uint64(stat.Bsize) //nolint:unconvert
	return stat.Bavail * blockSize, stat.Blocks * blockSize, nil
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem backing path has at least
// minFreeGiB gibibytes available.
func CheckFreeSpace(name, path string, minFreeGiB int) Result {
	free, _, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	const gib = 1 << 30
	required := uint64(minFreeGiB) * gib
	freeGiB := float64(free) / gib
	if free < required {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GiB free, %d GiB required", freeGiB, minFreeGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GiB free", freeGiB)}
}

// CheckBinaryDeps verifies the external binaries a run shells out to.
func CheckBinaryDeps(_ context.Context, cfg *config.Config) []Result {
	requirements := []deps.Requirement{
		{
			Name:        "s3cmd",
			Command:     cfg.S3cmdBinary(),
			Description: "Required for downloading recordings",
		},
		{
			Name:        "sox",
			Command:     cfg.SoxBinary(),
			Description: "Required for audio normalization",
		},
	}
	statuses := deps.CheckBinaries(requirements)
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available}
		if status.Available {
			result.Detail = status.Command
		} else {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

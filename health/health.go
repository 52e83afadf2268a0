// Package health writes a liveness file external monitors compare against a staleness threshold.
package health

import (
	"strconv"
	"time"

	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/utils"
)

type Reporter interface {
	Beat() error
}

// FileReporter overwrites its file with the current time in milliseconds since epoch
type FileReporter struct {
	path string
	now  func() time.Time
}

func NewFileReporter(path string) *FileReporter {
	return &FileReporter{path: path, now: time.Now}
}

func (r *FileReporter) Beat() error {
	content := strconv.FormatInt(r.now().UnixMilli(), 10)
	return utils.WriteFileAtomic(r.path, []byte(content), constants.HealthFileMode)
}

// Nop is used when no health file is configured
type Nop struct{}

func (Nop) Beat() error {
	return nil
}

// New returns a file reporter, or Nop for an empty path
func New(path string) Reporter {
	if path == "" {
		return Nop{}
	}

	return NewFileReporter(path)
}

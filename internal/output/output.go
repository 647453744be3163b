// Package output writes run artifacts: the assembled application graph
// and a run report, under a timestamped directory per run.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/commerce-iam/magento-fga-sync/internal/appmodel"
	"github.com/commerce-iam/magento-fga-sync/internal/push"
	"github.com/commerce-iam/magento-fga-sync/internal/rolegap"
)

const (
	applicationFile = "application.json"
	reportFile      = "run_report.json"
	dirTimeFormat   = "20060102_1504"
)

// RunReport summarizes one pipeline run, fidelity degradations included.
type RunReport struct {
	RunID        string            `json:"run_id"`
	Variant      string            `json:"variant"`
	Provider     string            `json:"provider"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	DryRun       bool              `json:"dry_run"`
	Strategy     rolegap.Strategy  `json:"role_gap_strategy"`
	Counts       appmodel.Counts   `json:"counts"`
	Unclassified []string          `json:"unclassified_permissions,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	Push         *push.Result      `json:"push,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Writer manages the output directory tree for runs.
type Writer struct {
	baseDir   string
	retention int
	logger    hclog.Logger
	now       func() time.Time
}

// NewWriter builds a writer rooted at baseDir. retention is the age in
// days past which run directories are removed; zero keeps everything.
func NewWriter(baseDir string, retention int, logger hclog.Logger) *Writer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Writer{
		baseDir:   baseDir,
		retention: retention,
		logger:    logger.Named("output"),
		now:       time.Now,
	}
}

// RunDir creates and returns a fresh directory for one run, named by
// timestamp and provider.
func (w *Writer) RunDir(provider string) (string, error) {
	name := fmt.Sprintf("%s_%s", w.now().Format(dirTimeFormat), dirSafe(provider))
	dir := filepath.Join(w.baseDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create run directory %s: %w", dir, err)
	}
	return dir, nil
}

// WriteApplication serializes the assembled graph into the run directory.
func (w *Writer) WriteApplication(dir string, app *appmodel.Application) (string, error) {
	path := filepath.Join(dir, applicationFile)
	if err := writeJSON(path, app); err != nil {
		return "", err
	}
	w.logger.Debug("wrote application", "path", path)
	return path, nil
}

// WriteReport serializes the run report into the run directory.
func (w *Writer) WriteReport(dir string, report *RunReport) (string, error) {
	path := filepath.Join(dir, reportFile)
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	w.logger.Debug("wrote run report", "path", path)
	return path, nil
}

// Cleanup removes run directories older than the retention window. Run
// directory names start with their creation timestamp; entries that do
// not parse are left alone.
func (w *Writer) Cleanup() error {
	if w.retention <= 0 {
		return nil
	}
	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot list output directory: %w", err)
	}
	cutoff := w.now().Add(-time.Duration(w.retention) * 24 * time.Hour)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		stamp, ok := parseRunDirTime(e.Name())
		if !ok || !stamp.Before(cutoff) {
			continue
		}
		path := filepath.Join(w.baseDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("cannot remove old run directory %s: %w", path, err)
		}
		w.logger.Debug("removed old run directory", "path", path)
	}
	return nil
}

func parseRunDirTime(name string) (time.Time, bool) {
	if len(name) < len(dirTimeFormat) {
		return time.Time{}, false
	}
	stamp, err := time.ParseInLocation(dirTimeFormat, name[:len(dirTimeFormat)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return stamp, true
}

func dirSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

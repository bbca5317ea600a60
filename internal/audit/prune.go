package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

var monthlyFilePattern = regexp.MustCompile(`^(security|audit|contact)_(\d{4}-\d{2})\.log$`)

// LogFile describes one monthly log file.
type LogFile struct {
	Path  string
	Kind  string
	Month time.Time
}

// ListFiles returns the monthly log files in dir, oldest first.
func ListFiles(dir string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("audit: read dir: %w", err)
	}

	var files []LogFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := monthlyFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		month, err := time.ParseInLocation(MonthLayout, m[2], time.Local)
		if err != nil {
			continue
		}
		files = append(files, LogFile{
			Path:  filepath.Join(dir, e.Name()),
			Kind:  m[1],
			Month: month,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].Month.Equal(files[j].Month) {
			return files[i].Month.Before(files[j].Month)
		}
		return files[i].Kind < files[j].Kind
	})
	return files, nil
}

// Prune deletes monthly files whose month ended before now minus
// retentionDays. It returns the removed paths. A non-positive retention
// keeps everything.
func Prune(dir string, retentionDays int, now time.Time) ([]string, error) {
	if retentionDays <= 0 {
		return nil, nil
	}

	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	var removed []string
	for _, f := range files {
		monthEnd := f.Month.AddDate(0, 1, 0)
		if !monthEnd.Before(cutoff) {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("audit: remove %s: %w", f.Path, err)
		}
		removed = append(removed, f.Path)
	}
	return removed, nil
}

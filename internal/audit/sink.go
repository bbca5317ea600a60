package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File layout constants.
const (
	FileExtension   = ".log"
	MonthLayout     = "2006-01"
	DefaultFilePerm = 0640
	DefaultDirPerm  = 0750
)

// Log kinds, used as file name prefixes.
const (
	KindSecurity = "security"
	KindAudit    = "audit"
	KindContact  = "contact"
)

// FileName returns the file name of a monthly log.
func FileName(kind string, month time.Time) string {
	return kind + "_" + month.Format(MonthLayout) + FileExtension
}

// monthlySink appends lines to <dir>/<kind>_YYYY-MM.log and switches files
// when the month of the written record changes. Appends are serialized.
type monthlySink struct {
	dir  string
	kind string

	mu    sync.Mutex
	file  *os.File
	month string
}

func newMonthlySink(dir, kind string) *monthlySink {
	return &monthlySink{dir: dir, kind: kind}
}

// Append writes line (which must end in a newline) to the file for at.
func (s *monthlySink) Append(at time.Time, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	month := at.Format(MonthLayout)
	if s.file == nil || s.month != month {
		if err := s.rotate(at, month); err != nil {
			return err
		}
	}

	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("audit: write %s: %w", s.kind, err)
	}
	return nil
}

func (s *monthlySink) rotate(at time.Time, month string) error {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}

	if err := os.MkdirAll(s.dir, DefaultDirPerm); err != nil {
		return fmt.Errorf("audit: create dir: %w", err)
	}

	path := filepath.Join(s.dir, FileName(s.kind, at))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", path, err)
	}

	s.file = f
	s.month = month
	return nil
}

// Close closes the current file.
func (s *monthlySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

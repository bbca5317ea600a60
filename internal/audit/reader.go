package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
)

// maxLineBytes bounds one audit record.
const maxLineBytes = 1 << 20

// Filter selects audit records.
type Filter struct {
	// Action keeps only records with this action when set.
	Action domain.AuditAction

	// Limit keeps only the newest Limit records when positive.
	Limit int
}

// ReadResult is the outcome of reading one audit file.
type ReadResult struct {
	Events []domain.AuditEvent

	// Skipped counts lines that did not decode.
	Skipped int
}

// ReadAudit reads the audit log of month from dir.
// A missing file yields an empty result.
func ReadAudit(dir string, month time.Time, filter Filter) (*ReadResult, error) {
	path := filepath.Join(dir, FileName(KindAudit, month))
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ReadResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	res := &ReadResult{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev domain.AuditEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			res.Skipped++
			continue
		}
		if filter.Action != "" && ev.Action != filter.Action {
			continue
		}
		res.Events = append(res.Events, ev)
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("audit: scan %s: %w", path, err)
	}

	if filter.Limit > 0 && len(res.Events) > filter.Limit {
		res.Events = res.Events[len(res.Events)-filter.Limit:]
	}
	return res, nil
}

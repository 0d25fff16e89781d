package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// DownloadPrefix is the URL path under which stored reports are served.
const DownloadPrefix = "/api/download-file/"

// ErrInvalidFilename is returned for names outside [a-zA-Z0-9_.-].
var ErrInvalidFilename = errors.New("invalid filename")

// ErrNotFound is returned when a stored report does not exist.
var ErrNotFound = errors.New("file not found")

var validFilename = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

// ValidFilename reports whether name is safe to serve. Names made only of dots are rejected.
func ValidFilename(name string) bool {
	return validFilename.MatchString(name) && strings.Trim(name, ".") != ""
}

// FileStore keeps generated reports in a single directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes data under name and returns its download URL.
func (s *FileStore) Save(name string, data []byte) (string, error) {
	if !ValidFilename(name) {
		return "", ErrInvalidFilename
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", name, err)
	}
	return DownloadPrefix + name, nil
}

// Path resolves name to a file on disk.
func (s *FileStore) Path(name string) (string, error) {
	if !ValidFilename(name) {
		return "", ErrInvalidFilename
	}
	p := filepath.Join(s.dir, name)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return p, nil
}

// HighRiskFilename names the high-risk report of a job.
func HighRiskFilename(jobID string) string {
	return "HIGH_RISK_" + jobID + ".csv"
}

// FailedFilename names the failure report of a job.
func FailedFilename(jobID string) string {
	return "FAILED_" + jobID + ".csv"
}

// Payment mix labels used in export filenames.
const (
	MixPrepaid = "PREPAID"
	MixCOD     = "COD"
	MixMixed   = "MIXED"
)

// PaymentMix classifies a set of rows by payment method.
func PaymentMix(rows []types.OrderRow) string {
	var prepaid, cod bool
	for _, r := range rows {
		switch r.Payment {
		case types.PaymentPrepaid:
			prepaid = true
		case types.PaymentCOD:
			cod = true
		}
	}
	switch {
	case prepaid && !cod:
		return MixPrepaid
	case cod && !prepaid:
		return MixCOD
	default:
		return MixMixed
	}
}

// ExportFilename names an export: {date}_NLG_POD_{mix}_BATCH-{last 3 of batch id}.{ext}.
func ExportFilename(rows []types.OrderRow, batchID string, now time.Time, ext string) string {
	suffix := batchID
	if len(suffix) > 3 {
		suffix = suffix[len(suffix)-3:]
	}
	return fmt.Sprintf("%s_NLG_POD_%s_BATCH-%s.%s", now.Format("2006-01-02"), PaymentMix(rows), suffix, ext)
}

// ApprovalFilename names the CSV attached to an approval email.
func ApprovalFilename(now time.Time) string {
	return fmt.Sprintf("FULFILLMENT-%d-%d.csv", int(now.Month()), now.Day())
}

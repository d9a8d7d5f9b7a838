package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"contractledger/internal/logging"
	"go.uber.org/zap"
)

const (
	timestampLayout = "20060102150405"
	maxNameAttempts = 100
)

var header = []string{"contract_id", "sum_billed_activity_amount_euris", "remaining_balance_euris"}

// CSVWriter stores report rows as report_<timestamp>.csv files in a folder.
type CSVWriter struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

func NewCSVWriter(dir string, logger *zap.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, logger: logging.OrNop(logger), now: time.Now}
}

// Write returns the path of the created file, or "" when rows is empty.
func (w *CSVWriter) Write(rows []Row) (string, error) {
	if len(rows) == 0 {
		w.logger.Info("report: no open contracts, nothing written")
		return "", nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	base := "report_" + w.now().Format(timestampLayout)
	tmp, err := os.CreateTemp(w.dir, "."+base+".*")
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(Format(r)); err != nil {
			tmp.Close()
			return "", fmt.Errorf("write row %s: %w", r.ContractID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	final, err := w.publish(tmp.Name(), base)
	if err != nil {
		return "", err
	}
	w.logger.Info("report: written", zap.String("path", final), zap.Int("rows", len(rows)))
	return final, nil
}

// publish links the finished temp file under a name no other report uses.
// Reports written within the same second get a numeric suffix.
func (w *CSVWriter) publish(tmpPath, base string) (string, error) {
	for n := 0; n < maxNameAttempts; n++ {
		name := base + ".csv"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.csv", base, n)
		}
		final := filepath.Join(w.dir, name)
		err := os.Link(tmpPath, final)
		if err == nil {
			return final, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("publish report: %w", err)
		}
	}
	return "", fmt.Errorf("publish report: no free name for %s after %d attempts", base, maxNameAttempts)
}

// Format renders a row with amounts rounded half away from zero to cents.
func Format(r Row) []string {
	return []string{r.ContractID.String(), r.Billed.StringFixed(2), r.Remaining.StringFixed(2)}
}

package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"contractledger/internal/domain"
	"contractledger/internal/logging"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var expectedHeader = []string{"salesSystemId", "name", "unitPrice"}

type PrestationWriter interface {
	Upsert(ctx context.Context, p domain.Prestation) (*domain.Prestation, error)
}

// Result summarizes one import. Problems holds every skipped row's reason.
type Result struct {
	Imported int
	Skipped  int
	Problems error
}

// CSVImporter reads salesSystemId,name,unitPrice rows and upserts catalogue
// entries. Columns are taken by position.
type CSVImporter struct {
	reader *csv.Reader
	repo   PrestationWriter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, repo PrestationWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // short rows are skipped, not fatal
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader: csvr,
		repo:   repo,
		logger: logging.OrNop(logger),
	}
}

// Run imports every valid row. Malformed rows are skipped and reported in
// Result.Problems; a storage failure stops the import and is returned.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result

	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	if len(headers) < len(expectedHeader) {
		return res, fmt.Errorf("header has %d columns, expected %s", len(headers), strings.Join(expectedHeader, ","))
	}
	if !headerMatches(headers) {
		i.logger.Warn("importer: header names differ, using column order",
			zap.Strings("header", headers),
			zap.Strings("expected", expectedHeader))
	}

	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			res.Skipped++
			res.Problems = multierror.Append(res.Problems, fmt.Errorf("line %d: %w", perr.StartLine, perr.Err))
			i.logger.Warn("importer: skipping malformed row", zap.Int("line", perr.StartLine), zap.Error(perr.Err))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read row %d: %w", line, err)
		}

		p, err := parseRow(record)
		if err != nil {
			res.Skipped++
			res.Problems = multierror.Append(res.Problems, fmt.Errorf("line %d: %w", line, err))
			i.logger.Warn("importer: skipping row", zap.Int("line", line), zap.Error(err))
			continue
		}

		saved, err := i.repo.Upsert(ctx, p)
		if err != nil {
			return res, fmt.Errorf("upsert prestation %q: %w", p.ID, err)
		}
		res.Imported++
		i.logger.Debug("importer: upserted", zap.String("sales_system_id", string(saved.ID)))
	}

	return res, nil
}

func headerMatches(headers []string) bool {
	for idx, want := range expectedHeader {
		if !strings.EqualFold(strings.TrimSpace(headers[idx]), want) {
			return false
		}
	}
	return true
}

func parseRow(record []string) (domain.Prestation, error) {
	if len(record) < len(expectedHeader) {
		return domain.Prestation{}, fmt.Errorf("expected %d columns, got %d", len(expectedHeader), len(record))
	}
	id, err := domain.NewServiceID(record[0])
	if err != nil {
		return domain.Prestation{}, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return domain.Prestation{}, fmt.Errorf("invalid unitPrice %q", record[2])
	}
	if price.IsNegative() {
		return domain.Prestation{}, fmt.Errorf("negative unitPrice %s", price)
	}
	return domain.Prestation{
		ID:        id,
		Name:      strings.TrimSpace(record[1]),
		UnitPrice: price,
	}, nil
}

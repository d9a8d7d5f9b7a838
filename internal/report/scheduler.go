package report

import (
	"context"
	"time"

	"contractledger/internal/logging"
	"contractledger/internal/metrics"
	"go.uber.org/zap"
)

// Scheduler runs Generate then Write on a fixed interval.
type Scheduler struct {
	generator *Generator
	writer    *CSVWriter
	interval  time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewScheduler(generator *Generator, writer *CSVWriter, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		generator: generator,
		writer:    writer,
		interval:  interval,
		metrics:   m,
		logger:    logging.OrNop(logger),
	}
}

// RunOnce produces one report. It returns the rows and the file written,
// which is empty when there was nothing to report.
func (s *Scheduler) RunOnce(ctx context.Context) ([]Row, string, error) {
	start := time.Now()
	rows, err := s.generator.Generate(ctx)
	if err != nil {
		s.metrics.ObserveReport(0, time.Since(start), err)
		return nil, "", err
	}
	path, err := s.writer.Write(rows)
	s.metrics.ObserveReport(len(rows), time.Since(start), err)
	if err != nil {
		return rows, "", err
	}
	return rows, path, nil
}

// Run waits one interval between runs until ctx is cancelled. Failed runs
// are logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("report scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("report scheduler stopped")
			return nil
		case <-ticker.C:
		}
		rows, path, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Error("report run failed", zap.Error(err))
			continue
		}
		s.logger.Info("report run finished", zap.Int("rows", len(rows)), zap.String("path", path))
	}
}

package run

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"murmur/internal/middleware"
	"murmur/internal/pipeline"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var (
	ErrNotFound       = errors.New("run not found")
	ErrLedgerDisabled = errors.New("run ledger is disabled")
)

// Service records finished runs to the report log and, when a repository is
// configured, to the ledger table.
type Service struct {
	repo   Repository
	report *ReportLogger
}

// NewService accepts a nil repo or report; the missing sink is skipped.
func NewService(repo Repository, report *ReportLogger) *Service {
	return &Service{repo: repo, report: report}
}

func (s *Service) LedgerEnabled() bool {
	return s.repo != nil
}

func (s *Service) Record(ctx context.Context, source string, res *pipeline.Result) (*Run, error) {
	r := FromResult(source, res)

	if s.repo != nil {
		if err := s.repo.Save(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to save run %s: %w", r.ID, err)
		}
	}

	if s.report != nil {
		entry := ReportEntry{Run: *r}
		if id := middleware.GetCorrelationID(ctx); id != "unknown" {
			entry.CorrelationID = id
		}
		s.report.Log(entry)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]Run, error) {
	if s.repo == nil {
		return nil, ErrLedgerDisabled
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	return s.repo.List(ctx, limit)
}

func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	if s.repo == nil {
		return nil, ErrLedgerDisabled
	}
	r, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/jobs"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	// MaxExportRows caps an unpaged export.
	MaxExportRows = 5000
	// MaxPage bounds the timeline page number.
	MaxPage = 10000
)

var errNotConfigured = errors.New("audit: repository not configured")

// Service records and lists denials.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the audit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// RecordDenial implements jobs.DenialStore.
func (s *Service) RecordDenial(ctx context.Context, p jobs.DenialPayload) error {
	if s.repo == nil {
		return errNotConfigured
	}
	id := p.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	occurred := p.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	return s.repo.Insert(ctx, Denial{
		ID:          id,
		Adapter:     p.Adapter,
		Outcome:     p.Outcome,
		UserID:      p.UserID,
		Role:        p.Role,
		SchoolID:    p.SchoolID,
		Requirement: p.Requirement,
		Resource:    p.Resource,
		OccurredAt:  occurred.UTC(),
	})
}

// PurgeDenials implements jobs.DenialStore.
func (s *Service) PurgeDenials(ctx context.Context, before time.Time) (int64, error) {
	if s.repo == nil {
		return 0, errNotConfigured
	}
	return s.repo.PurgeBefore(ctx, before)
}

// Timeline returns one page of the school's denials.
func (s *Service) Timeline(ctx context.Context, f Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, errNotConfigured
	}
	if err := validateScope(f); err != nil {
		return Result{}, err
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		return Result{}, fmt.Errorf("audit: page %d beyond %d: %w", page, MaxPage, httpx.ErrValidation)
	}
	rows, err := s.repo.List(ctx, f, (page-1)*pageSize, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []Denial{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every denial matching f up to MaxExportRows.
func (s *Service) Export(ctx context.Context, f Filters) ([]Denial, error) {
	if s.repo == nil {
		return nil, errNotConfigured
	}
	if err := validateScope(f); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f, 0, MaxExportRows)
}

func validateScope(f Filters) error {
	if strings.TrimSpace(f.SchoolID) == "" {
		return fmt.Errorf("audit: school scope required: %w", httpx.ErrValidation)
	}
	return nil
}

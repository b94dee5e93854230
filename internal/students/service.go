package students

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/shared"
)

const numberAttempts = 3

// Service implements student business rules on top of a Repository.
type Service struct {
	repo      Repository
	logger    *slog.Logger
	validator *validator.Validate
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, validator: validator.New(), now: time.Now}
}

// List returns one page of active students. The page and the total are
// fetched concurrently.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	filter.Page, filter.Limit = shared.NormalizePage(filter.Page, filter.Limit)
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.ClassID == "all" {
		filter.ClassID = ""
	}

	var (
		rows  []Student
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return ListResult{}, err
	}
	if rows == nil {
		rows = []Student{}
	}
	return ListResult{Students: rows, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
}

// Get returns one student of schoolID.
func (s *Service) Get(ctx context.Context, schoolID, id string) (*Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("students: %s: %w", id, httpx.ErrNotFound)
	}
	return s.repo.Get(ctx, schoolID, id)
}

// Create enrols a student in schoolID with a generated student number.
func (s *Service) Create(ctx context.Context, schoolID string, in CreateInput) (*Student, error) {
	in = in.normalized()
	if err := s.validate(in); err != nil {
		return nil, err
	}
	dob, err := parseDate(in.DateOfBirth)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	student := Student{
		ID:           uuid.NewString(),
		SchoolID:     schoolID,
		ClassID:      nonEmpty(in.ClassID),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		FirstNameAr:  in.FirstNameAr,
		LastNameAr:   in.LastNameAr,
		DateOfBirth:  dob,
		PlaceOfBirth: in.PlaceOfBirth,
		Gender:       in.Gender,
		Address:      in.Address,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for attempt := 1; ; attempt++ {
		student.StudentNumber = NewStudentNumber(now)
		created, err := s.repo.Create(ctx, student)
		if err == nil {
			s.logger.Info("student created", slog.String("student", created.ID), slog.String("school", schoolID))
			return created, nil
		}
		if !errors.Is(err, httpx.ErrDuplicate) || attempt == numberAttempts {
			return nil, err
		}
		s.logger.Warn("student number collision", slog.String("number", student.StudentNumber))
	}
}

// Update applies a partial update to a student of schoolID.
func (s *Service) Update(ctx context.Context, schoolID, id string, in UpdateInput) (*Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("students: %s: %w", id, httpx.ErrNotFound)
	}
	if err := s.validate(in.forValidation()); err != nil {
		return nil, err
	}
	changes := make(map[string]any)
	if in.FirstName != nil {
		changes["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		changes["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.FirstNameAr != nil {
		changes["first_name_ar"] = *in.FirstNameAr
	}
	if in.LastNameAr != nil {
		changes["last_name_ar"] = *in.LastNameAr
	}
	if in.DateOfBirth != nil {
		dob, err := parseDate(in.DateOfBirth)
		if err != nil {
			return nil, err
		}
		changes["date_of_birth"] = dob
	}
	if in.PlaceOfBirth != nil {
		changes["place_of_birth"] = *in.PlaceOfBirth
	}
	if in.Gender != nil {
		changes["gender"] = nonEmpty(in.Gender)
	}
	if in.Address != nil {
		changes["address"] = *in.Address
	}
	if in.ClassID != nil {
		changes["class_id"] = nonEmpty(in.ClassID)
	}
	if in.IsActive != nil {
		changes["is_active"] = *in.IsActive
	}
	return s.repo.Update(ctx, schoolID, id, changes)
}

// Delete soft deletes a student of schoolID.
func (s *Service) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("students: %s: %w", id, httpx.ErrNotFound)
	}
	if err := s.repo.Deactivate(ctx, schoolID, id); err != nil {
		return err
	}
	s.logger.Info("student deactivated", slog.String("student", id), slog.String("school", schoolID))
	return nil
}

// NewStudentNumber returns a number of the form YYYY-xxxxxxxx.
func NewStudentNumber(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%04d-%s", now.Year(), id[:8])
}

func (s *Service) validate(v any) error {
	if err := s.validator.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", httpx.ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, fmt.Errorf("%w: dateOfBirth", httpx.ErrValidation)
	}
	return &t, nil
}

func nonEmpty(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}

package students

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/shared"
)

type memoryRepo struct {
	mu         sync.Mutex
	students   map[string]Student
	duplicates int
	lastFilter ListFilter
}

func newMemoryRepo(seed ...Student) *memoryRepo {
	repo := &memoryRepo{students: make(map[string]Student)}
	for _, s := range seed {
		repo.students[s.ID] = s
	}
	return repo
}

func (m *memoryRepo) matching(filter ListFilter) []Student {
	var out []Student
	for _, s := range m.students {
		if s.SchoolID != filter.SchoolID || !s.IsActive {
			continue
		}
		if filter.ClassID != "" && (s.ClassID == nil || *s.ClassID != filter.ClassID) {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			hay := strings.ToLower(s.FirstName + " " + s.LastName + " " + s.StudentNumber)
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	all := m.matching(filter)
	start := shared.Offset(filter.Page, filter.Limit)
	if start >= len(all) {
		return nil, nil
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *memoryRepo) Count(_ context.Context, filter ListFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(filter)), nil
}

func (m *memoryRepo) Get(_ context.Context, schoolID, id string) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.SchoolID != schoolID {
		return nil, fmt.Errorf("students: %w", httpx.ErrNotFound)
	}
	return &s, nil
}

func (m *memoryRepo) Create(_ context.Context, s Student) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.duplicates > 0 {
		m.duplicates--
		return nil, fmt.Errorf("students: number %s: %w", s.StudentNumber, httpx.ErrDuplicate)
	}
	m.students[s.ID] = s
	return &s, nil
}

func (m *memoryRepo) Update(_ context.Context, schoolID, id string, changes map[string]any) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.SchoolID != schoolID {
		return nil, fmt.Errorf("students: %w", httpx.ErrNotFound)
	}
	if v, ok := changes["first_name"]; ok {
		s.FirstName = v.(string)
	}
	if v, ok := changes["last_name"]; ok {
		s.LastName = v.(string)
	}
	if v, ok := changes["class_id"]; ok {
		s.ClassID = v.(*string)
	}
	if v, ok := changes["is_active"]; ok {
		s.IsActive = v.(bool)
	}
	m.students[id] = s
	return &s, nil
}

func (m *memoryRepo) Deactivate(_ context.Context, schoolID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.SchoolID != schoolID || !s.IsActive {
		return fmt.Errorf("students: %w", httpx.ErrNotFound)
	}
	s.IsActive = false
	m.students[id] = s
	return nil
}

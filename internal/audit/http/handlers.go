// Package audithttp serves the denial audit trail.
package audithttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ecoly/ecoly/internal/audit"
	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/internal/shared"
)

const (
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
	dateLayout        = "2006-01-02"
)

// TimelineService defines the business contract for denial listings.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.Filters) (audit.Result, error)
	Export(ctx context.Context, filters audit.Filters) ([]audit.Denial, error)
}

// Handler serves denial listings.
type Handler struct {
	logger   *slog.Logger
	service  TimelineService
	enforcer *rbac.Enforcer
	now      func() time.Time
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, enforcer *rbac.Enforcer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, enforcer: enforcer, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	filters, err := h.parseFilters(r, schoolID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "load denials", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	filters, err := h.parseFilters(r, schoolID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "export denials", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"authz-denials.csv\"")
	if err := audit.WriteCSV(w, rows); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	if err := h.enforcer.AuthorizeRequest(r, rbac.RequirePermission(shared.PermSettingsManage)); err != nil {
		httpx.RespondError(w, err)
		return "", false
	}
	p := rbac.PrincipalFromContext(r.Context())
	if p.TenantID == "" {
		h.logger.Warn("audit: principal without school", slog.String("user", p.ID))
		httpx.RespondError(w, httpx.ErrForbidden)
		return "", false
	}
	return p.TenantID, true
}

func (h *Handler) parseFilters(r *http.Request, schoolID string) (audit.Filters, error) {
	q := r.URL.Query()
	now := h.now().UTC()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format(dateLayout)
	}
	toTime, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return audit.Filters{}, validationError("to")
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format(dateLayout)
	}
	fromTime, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return audit.Filters{}, validationError("from")
	}
	if fromTime.After(toTime) || toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return audit.Filters{}, validationError("range")
	}
	adapter := strings.TrimSpace(q.Get("adapter"))
	if adapter != "" && adapter != rbac.AdapterRoute && adapter != rbac.AdapterAPI {
		return audit.Filters{}, validationError("adapter")
	}
	page, err := positiveInt(q.Get("page"), 1)
	if err != nil || page > audit.MaxPage {
		return audit.Filters{}, validationError("page")
	}
	pageSize, err := positiveInt(q.Get("page_size"), 0)
	if err != nil {
		return audit.Filters{}, validationError("page_size")
	}
	return audit.Filters{
		SchoolID: schoolID,
		From:     fromTime,
		// The to date is inclusive.
		To:       toTime.Add(24 * time.Hour),
		Adapter:  adapter,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return v, nil
}

func validationError(field string) error {
	return fmt.Errorf("invalid %s: %w", field, httpx.ErrValidation)
}

func (h *Handler) handleServerError(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusOf(err) == http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

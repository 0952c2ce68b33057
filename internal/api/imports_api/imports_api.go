package imports_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/BearBump/ImportBox/internal/models"
	"github.com/BearBump/ImportBox/internal/services/imports"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type ImportsAPI struct {
	svc *imports.Service

	rl           RateLimiter
	writesPerMin int64
}

func New(svc *imports.Service) *ImportsAPI {
	return &ImportsAPI{svc: svc}
}

// WithWriteRateLimit throttles mutating routes per client address.
func (a *ImportsAPI) WithWriteRateLimit(rl RateLimiter, perMinute int64) *ImportsAPI {
	a.rl = rl
	a.writesPerMin = perMinute
	return a
}

func (a *ImportsAPI) Register(r chi.Router) {
	r.Get("/healthz", a.healthz)

	r.Route("/v1/imports", func(r chi.Router) {
		r.Get("/", a.listImportRecords)
		r.Get("/{id}", a.getImportRecord)

		r.Group(func(r chi.Router) {
			r.Use(a.limitWrites)
			r.Post("/", a.createImportRecord)
			r.Patch("/{id}", a.updateImportRecord)
			r.Post("/{id}/status", a.updateImportStatus)
			r.Delete("/{id}", a.deleteImportRecord)
		})
	})
}

type listResponse struct {
	Records []*models.ImportRecord `json:"records"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *ImportsAPI) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *ImportsAPI) createImportRecord(w http.ResponseWriter, r *http.Request) {
	var in models.ImportRecordCreateInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	rec, err := a.svc.CreateImportRecord(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *ImportsAPI) listImportRecords(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := a.svc.ListImportRecords(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []*models.ImportRecord{}
	}
	writeJSON(w, http.StatusOK, listResponse{Records: recs})
}

func (a *ImportsAPI) getImportRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := a.svc.GetImportRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeError(w, models.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *ImportsAPI) updateImportRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in models.ImportRecordUpdateInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.ID = id

	rec, err := a.svc.UpdateImportRecord(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *ImportsAPI) updateImportStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in models.ImportStatusUpdateInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.ID = id

	rec, err := a.svc.UpdateImportStatus(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *ImportsAPI) deleteImportRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ok, err := a.svc.DeleteImportRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: ok})
}

// limitWrites fails open: a limiter outage must not block record keeping.
func (a *ImportsAPI) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.rl == nil || a.writesPerMin <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		allowed, _, err := a.rl.Allow(r.Context(), "rl:imports:write:"+clientHost(r), a.writesPerMin, time.Minute)
		if err != nil {
			slog.Warn("write rate limiter unavailable", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many write requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseFilter(r *http.Request) (models.ImportRecordFilter, error) {
	q := r.URL.Query()
	var f models.ImportRecordFilter

	if v := q.Get("status"); v != "" {
		s := models.ImportStatus(v)
		f.Status = &s
	}
	if v := q.Get("tracking_number"); v != "" {
		f.TrackingNumber = &v
	}
	if v := q.Get("supplier_name"); v != "" {
		f.SupplierName = &v
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"date_from", &f.DateFrom},
		{"date_to", &f.DateTo},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := parseTime(v)
		if err != nil {
			return f, errors.Wrapf(models.ErrValidation, "%s: %v", p.name, err)
		}
		*p.dst = &t
	}
	return f, nil
}

// parseTime accepts RFC 3339 or a bare date. A bare date is midnight UTC
// for both bounds, so date_to=2024-01-31 stops at the start of that day.
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.Wrap(models.ErrValidation, "id must be a positive integer")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrapf(models.ErrValidation, "malformed request body: %v", err)
	}
	return nil
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrConstraintViolation):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		slog.Error("import request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

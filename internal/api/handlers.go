package api

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/BartekS5/reviewflow/internal/etl"
	"github.com/BartekS5/reviewflow/pkg/models"
)

const (
	keyLatestRun = "reviewflow:runs:latest"
	keySummary   = "reviewflow:rejections:summary"
)

// ReportStore is the read side of the document store.
type ReportStore interface {
	LatestRun(ctx context.Context) (*models.RunMetadata, error)
	RejectionSummary(ctx context.Context) ([]models.ReasonCount, error)
}

type Handlers struct {
	Store ReportStore
	// Cache is optional.
	Cache Cache
	TTL   time.Duration
	Log   zerolog.Logger
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type ReasonShare struct {
	Reason     models.RejectionReason `json:"reason"`
	Count      int64                  `json:"count"`
	Percentage float64                `json:"percentage"`
}

type RejectionSummary struct {
	Total   int64         `json:"total"`
	Reasons []ReasonShare `json:"reasons"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", healthz)
	s.mux.Get("/v1/runs/latest", h.latestRun)
	s.mux.Get("/v1/rejections/summary", h.rejectionSummary)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

// writeJSON sends v with a weak ETag and honours If-None-Match.
func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.Log.Error().Err(err).Msg("marshal response")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.Log.Error().Err(err).Msg("write response body")
	}
}

func (h *Handlers) cached(ctx context.Context, key string, dst any) bool {
	if h.Cache == nil {
		return false
	}
	ok, err := h.Cache.Get(ctx, key, dst)
	if err != nil {
		h.Log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	return ok
}

func (h *Handlers) store(ctx context.Context, key string, v any) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Set(ctx, key, v, h.TTL); err != nil {
		h.Log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (h *Handlers) latestRun(w http.ResponseWriter, r *http.Request) {
	var run models.RunMetadata
	if h.cached(r.Context(), keyLatestRun, &run) {
		h.writeJSON(w, r, run)
		return
	}
	got, err := h.Store.LatestRun(r.Context())
	if errors.Is(err, etl.ErrNoRuns) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no pipeline run recorded yet")
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("latest run")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", "document store unavailable")
		return
	}
	h.store(r.Context(), keyLatestRun, got)
	h.writeJSON(w, r, got)
}

func (h *Handlers) rejectionSummary(w http.ResponseWriter, r *http.Request) {
	var out RejectionSummary
	if h.cached(r.Context(), keySummary, &out) {
		h.writeJSON(w, r, out)
		return
	}
	counts, err := h.Store.RejectionSummary(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("rejection summary")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", "document store unavailable")
		return
	}
	out = summarize(counts)
	h.store(r.Context(), keySummary, out)
	h.writeJSON(w, r, out)
}

func summarize(counts []models.ReasonCount) RejectionSummary {
	out := RejectionSummary{Reasons: make([]ReasonShare, 0, len(counts))}
	for _, c := range counts {
		out.Total += c.Count
	}
	for _, c := range counts {
		share := ReasonShare{Reason: c.Reason, Count: c.Count}
		if out.Total > 0 {
			share.Percentage = float64(c.Count) / float64(out.Total) * 100
		}
		out.Reasons = append(out.Reasons, share)
	}
	return out
}

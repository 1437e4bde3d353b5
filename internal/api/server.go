// Package api exposes the HTTP ingest boundary for the price catalog. It
// accepts the canonical upload payload, resolves each record into catalog
// rows and answers with the per-batch report the upload client consumes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/catalog"
	"github.com/LukSky123/Prices.ai/internal/parse"
	"github.com/LukSky123/Prices.ai/internal/upload"
)

// DefaultMarket is assigned to records whose line names no market.
const DefaultMarket = "Supermart"

// Server wires HTTP handlers to the catalog store.
type Server struct {
	router chi.Router
	store  catalog.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store catalog.Store, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/scrape", s.ingest)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	var records []upload.Record
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid data format")
		return
	}

	var report upload.Report
	for i, rec := range records {
		line, ok := parse.PriceLine(rec.Title + " " + rec.Price)
		if !ok {
			report.Skipped++
			continue
		}
		if err := s.ingestOne(r.Context(), line, rec.TitleURL); err != nil {
			report.Errors++
			report.ErrorDetails = append(report.ErrorDetails,
				fmt.Sprintf("record %d (%s): %v", i, line.Item, err))
			continue
		}
		report.Processed++
	}

	s.logger.Info("Ingest batch handled",
		zap.Int("records", len(records)),
		zap.Int("processed", report.Processed),
		zap.Int("errors", report.Errors),
		zap.Int("skipped", report.Skipped),
	)
	s.writeJSON(w, http.StatusOK, report)
}

// ingestOne resolves one parsed line into catalog rows: find-or-create the
// item and market, then append a price observation.
func (s *Server) ingestOne(ctx context.Context, line parse.PricedLine, itemURL string) error {
	itemID, _, err := s.store.FindOrCreateItem(ctx, line.Item, line.Unit, itemURL)
	if err != nil {
		return fmt.Errorf("resolve item: %w", err)
	}
	marketName := line.Market
	if marketName == "" {
		marketName = DefaultMarket
	}
	marketID, _, err := s.store.FindOrCreateMarket(ctx, marketName, "")
	if err != nil {
		return fmt.Errorf("resolve market: %w", err)
	}
	obs := catalog.PriceObservation{
		ItemID:      itemID,
		MarketID:    marketID,
		Price:       line.Price,
		DateScraped: s.now().UTC(),
	}
	if err := s.store.InsertPrice(ctx, obs); err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("Request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

// Package valuation exposes the pipeline over HTTP: trigger runs, read
// stored results and render reports.
package valuation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"autodcf/pkg/core/config"
	"autodcf/pkg/core/export"
	"autodcf/pkg/models"
)

// Runner executes a valuation from a run configuration.
type Runner interface {
	Run(ctx context.Context, cfg config.Config) (*models.ValuationRun, error)
}

// RunReader reads stored runs. Nil when no database is configured.
type RunReader interface {
	Latest(ctx context.Context, ticker string) (*models.ValuationRun, error)
	History(ctx context.Context, ticker string, limit int) ([]*models.ValuationRun, error)
}

// Handler holds dependencies for the valuation endpoints.
type Handler struct {
	Runner Runner
	Runs   RunReader
}

// NewHandler creates a valuation handler. runs may be nil, which turns the
// read endpoints into 503s.
func NewHandler(runner Runner, runs RunReader) *Handler {
	return &Handler{Runner: runner, Runs: runs}
}

// HandleRun runs a valuation. The body is a run file: strict JSON, sloppy
// JSON or Hjson, merged onto the defaults.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	// CORS
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	cfg, err := config.Parse(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fmt.Printf("[API] run requested for %s\n", strings.ToUpper(cfg.Ticker))

	// Scraping three statements plus market data takes a while on a cold
	// cache, but not minutes.
	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	run, err := h.Runner.Run(ctx, cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.HasPrefix(err.Error(), "config:") {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// HandleLatest returns the most recent stored run for a ticker.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	run, ok := h.latestRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// HandleHistory lists stored runs for a ticker, newest first. An optional
// limit parameter caps the page size.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	ticker, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be a number", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.Runs.History(r.Context(), ticker, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*models.ValuationRun{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// HandleReport renders the latest stored run for a ticker as an HTML
// report.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	run, ok := h.latestRun(w, r)
	if !ok {
		return
	}

	page, err := export.RenderHTML(export.RunReport(run))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, page)
}

// latestRun resolves the ticker parameter and loads its most recent run,
// writing the error response itself when something is off.
func (h *Handler) latestRun(w http.ResponseWriter, r *http.Request) (*models.ValuationRun, bool) {
	ticker, ok := h.requireStore(w, r)
	if !ok {
		return nil, false
	}

	run, err := h.Runs.Latest(r.Context(), strings.ToUpper(ticker))
	if err != nil {
		if strings.Contains(err.Error(), "no valuation found") {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return run, true
}

func (h *Handler) requireStore(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Runs == nil {
		http.Error(w, "run store not configured", http.StatusServiceUnavailable)
		return "", false
	}
	ticker := strings.ToUpper(r.URL.Query().Get("ticker"))
	if ticker == "" {
		http.Error(w, "ticker parameter is required", http.StatusBadRequest)
		return "", false
	}
	return ticker, true
}

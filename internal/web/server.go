// Package web exposes the merged calendars over HTTP: one endpoint per
// configuration name, plus an index and a health check.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jdejaegh/ics-fusion/internal/apperr"
	appLog "github.com/jdejaegh/ics-fusion/internal/log"
	"github.com/jdejaegh/ics-fusion/internal/merge"
)

// NewServer builds the HTTP server serving merged calendars from the given
// merger.
func NewServer(m *merge.Merger, listen string) *http.Server {
	h := &handlers{merger: m}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /{calendar}", h.handleCalendar)

	return &http.Server{
		Addr:    listen,
		Handler: securityHeaders(mux),
	}
}

type handlers struct {
	merger *merge.Merger
}

// handleCalendar serves one merged endpoint as text/calendar.
func (h *handlers) handleCalendar(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("calendar")

	body, err := h.merger.Merge(r.Context(), name)
	if err != nil {
		appLog.Error("merge failed", err, "endpoint", name)
		http.Error(w, err.Error(), apperr.StatusOf(err))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.ics", name))
	if _, err := w.Write([]byte(body)); err != nil {
		appLog.Error("writing calendar response failed", err, "endpoint", name)
	}
}

// handleIndex lists the available endpoint names, one per line.
func (h *handlers) handleIndex(w http.ResponseWriter, _ *http.Request) {
	names, err := h.merger.Endpoints()
	if err != nil {
		http.Error(w, "cannot list configurations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the server and shuts it down gracefully on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	appLog.Info("serving merged calendars", "listen", srv.Addr)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		appLog.Info("signal received, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

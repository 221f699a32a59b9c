// Package status exposes a small HTTP surface for liveness checks and
// operational counters.
package status

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/GregPesc/bot-telegram/internal/scheduler"
	"github.com/GregPesc/bot-telegram/internal/session"
	"github.com/GregPesc/bot-telegram/internal/store"
)

// Stats is the /stats response body.
type Stats struct {
	Users           int                `json:"users"`
	Reminders       int                `json:"reminders"`
	ActiveReminders int                `json:"active_reminders"`
	OpenSessions    int                `json:"open_sessions"`
	TotalMessages   int64              `json:"total_messages"`
	Scheduler       scheduler.Snapshot `json:"scheduler"`
}

// Handler builds the status router.
func Handler(st *store.Store, sched *scheduler.Scheduler, sessions *session.Manager) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		users, reminders, active := st.Counts()
		body := Stats{
			Users:           users,
			Reminders:       reminders,
			ActiveReminders: active,
			OpenSessions:    sessions.Count(),
			TotalMessages:   st.Stats().TotalMessages,
			Scheduler:       sched.Metrics(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Warn().Err(err).Msg("Failed to encode stats response")
		}
	})

	return r
}

// Serve runs the status server until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) {
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Status server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Status server error")
	}
}

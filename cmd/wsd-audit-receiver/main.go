package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/straja-ai/wsd/internal/audit"
)

// Development sink for audit.webhook_url: logs every event it receives.
func main() {
	addr := flag.String("addr", ":8099", "listen address for audit receiver")
	token := flag.String("token", "", "bearer token expected from the sink (matches audit.webhook_token)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
		if *token != "" && r.Header.Get("Authorization") != "Bearer "+*token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var ev audit.Event
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&ev)
		_ = r.Body.Close()
		if err != nil {
			http.Error(w, "invalid event", http.StatusBadRequest)
			return
		}
		if id := r.Header.Get("X-WSD-Request-ID"); id != "" && id != ev.RequestID {
			http.Error(w, "request id header does not match event", http.StatusBadRequest)
			return
		}
		logger.Info("audit event",
			"request_id", ev.RequestID,
			"word", ev.Word,
			"sentences", ev.Sentences,
			"by_rule", ev.ByRule,
			"by_model", ev.ByModel,
			"status", ev.Status,
			"latency_ms", ev.LatencyMs,
		)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintln(w, `{"status":"ok"}`)
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("audit receiver listening (POST JSON events)", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("receiver error", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relampagos/tindapos/backend/internal/logging"
	"github.com/relampagos/tindapos/backend/internal/sync/scheduler"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background sync daemon and local status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.store.Close()

			return runServe(cmd.Context(), rt, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "localhost:8090", "address for the local status API")
	return cmd
}

func runServe(ctx context.Context, rt *runtime, listen string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.monitor.Start(ctx)
	defer rt.monitor.Stop()

	sched := scheduler.New(rt.engine, rt.monitor, &scheduler.Config{
		SyncInterval:   rt.cfg.Sync.Interval,
		ReconnectDelay: rt.cfg.Sync.ReconnectDelay,
	})
	sched.Start(ctx)
	defer sched.Stop()

	hub := NewWSHub()

	// Mirror connectivity edges to connected shells.
	go func() {
		events := rt.monitor.Subscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				hub.BroadcastConnectivity(ev.Online)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sync/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  rt.engine.Status(),
			"storage": rt.store.Info(),
		})
	})
	mux.HandleFunc("POST /sync/trigger", func(w http.ResponseWriter, r *http.Request) {
		hub.BroadcastSyncStarted()
		result := sched.SyncNow(r.Context())
		hub.BroadcastSyncResult(result)

		code := http.StatusOK
		if !result.Success {
			code = http.StatusBadGateway
		}
		writeJSON(w, code, result)
	})
	mux.HandleFunc("POST /cache/clear", func(w http.ResponseWriter, r *http.Request) {
		ok := rt.store.ClearAll()
		writeJSON(w, http.StatusOK, map[string]any{"cleared": ok})
	})
	mux.HandleFunc("/ws", hub.HandleWS)

	srv := &http.Server{
		Addr:         listen,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("status API listening", logging.Fields{"addr": listen})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status API: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

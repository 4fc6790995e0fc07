// Command posd is the TindaPOS backend daemon and maintenance CLI. It
// hosts the offline-first sync core: local cache, pending queues, sync
// engine and the status surface consumed by the PWA shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/relampagos/tindapos/backend/internal/api"
	"github.com/relampagos/tindapos/backend/internal/config"
	"github.com/relampagos/tindapos/backend/internal/connectivity"
	"github.com/relampagos/tindapos/backend/internal/logging"
	"github.com/relampagos/tindapos/backend/internal/store"
	syncpkg "github.com/relampagos/tindapos/backend/internal/sync"
)

// Version is set at build time.
var Version = "0.1.0"

// runtime bundles the wired components shared by all commands.
type runtime struct {
	cfg     config.Config
	store   *store.Store
	monitor *connectivity.Monitor
	engine  *syncpkg.Engine
}

// setup loads configuration and wires store, monitor, client and engine.
func setup() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.Init(os.Stderr, cfg.Log.Level)

	st, err := store.Open(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	probe := connectivity.DialProbe(probeAddr(cfg.Server.BaseURL), 3*time.Second)
	monitor := connectivity.NewMonitor(probe, cfg.Sync.ProbeInterval)

	client := api.NewClient(cfg.Server.BaseURL, cfg.Server.Timeout)
	engine := syncpkg.NewEngine(st, client, monitor.IsOnline)

	return &runtime{cfg: cfg, store: st, monitor: monitor, engine: engine}, nil
}

// probeAddr derives a host:port dial target from the API base URL.
func probeAddr(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "localhost:4000"
	}
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return u.Host + ":443"
	}
	return u.Host + ":80"
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "posd",
		Short:   "TindaPOS offline-first sync backend",
		Version: Version,
	}

	root.AddCommand(newSyncCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newClearCmd())
	root.AddCommand(newServeCmd())

	return root
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle against the remote server",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			// One-shot probe; the poll loop is not needed for a single cycle.
			rt.monitor.SetOnline(connectivity.DialProbe(probeAddr(rt.cfg.Server.BaseURL), 3*time.Second)(ctx))

			result := rt.engine.SyncAll(ctx)
			return printJSON(cmd, result)
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and local storage diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.store.Close()

			out := struct {
				Status  syncpkg.Status    `json:"status"`
				Storage store.StorageInfo `json:"storage"`
			}{
				Status:  rt.engine.Status(),
				Storage: rt.store.Info(),
			}
			return printJSON(cmd, out)
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the local cache, pending queues and last-sync marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.store.Close()

			if !rt.store.ClearAll() {
				return fmt.Errorf("cache clear incomplete, see logs")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "local cache cleared")
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

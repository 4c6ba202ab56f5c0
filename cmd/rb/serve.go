package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/studyreward/rewardbook/internal/api"
	"github.com/studyreward/rewardbook/internal/backup"
	"github.com/studyreward/rewardbook/internal/events"
	"github.com/studyreward/rewardbook/internal/store"
	"github.com/studyreward/rewardbook/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "admin",
	Short:   "Serve the HTTP API, live events, the import inbox and backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if cfg.API.BaseURL != "" {
			return errors.New("serve always uses local data; unset api.base_url")
		}
		// the server logs even without --verbose
		if logClose == nil {
			logOut = os.Stderr
		}

		hub := events.NewHub(newLogger("events"))
		defer func() { _ = hub.Close() }()

		svc, st, err := openLocal(hub)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		ctx, cancel := cmdContext()
		defer cancel()

		// surface migration or storage problems before listening
		if _, err := svc.Points(ctx); err != nil {
			return fmt.Errorf("failed to load data: %w", err)
		}

		srv := api.NewServer(svc, api.ServerOptions{
			Logger:  newLogger("api"),
			Hub:     hub,
			Metrics: cfg.Server.Metrics,
		})

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Serve(ctx, cfg.Server.Addr, func(addr string) {
				fmt.Printf("Listening on http://%s (data: %s, backend: %s)\n", addr, cfg.Storage.Dir, cfg.Storage.Backend)
			})
		})

		if cfg.Inbox.Dir != "" {
			inboxLog := newLogger("inbox")
			inbox, err := watch.New(cfg.Inbox.Dir, svc, &watch.Config{
				Logger: inboxLog,
				OnResult: func(path string, res store.ImportResult) {
					inboxLog.Printf("%s: %s", path, res.Message)
				},
			})
			if err != nil {
				cancel()
				_ = g.Wait()
				return err
			}
			g.Go(func() error { return inbox.Run(ctx) })
		}

		if cfg.Backup.Schedule != "" {
			sched, err := backup.New(svc, backup.Config{
				Schedule: cfg.Backup.Schedule,
				Dir:      cfg.Backup.Dir,
				Keep:     cfg.Backup.Keep,
				Logger:   newLogger("backup"),
			})
			if err != nil {
				cancel()
				_ = g.Wait()
				return err
			}
			g.Go(func() error { return sched.Run(ctx) })
		}

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	rootCmd.AddCommand(serveCmd)
}

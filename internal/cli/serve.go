package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"weekplan/internal/gcal"
	"weekplan/internal/ics"
	"weekplan/internal/jobs"
	appLog "weekplan/internal/log"
	"weekplan/internal/model"
	"weekplan/internal/session"
	"weekplan/internal/web"
)

func (a *app) serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background calendar refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"user", cfg.UserID,
		"save_cron", cfg.SaveCron,
		"refresh", cfg.RefreshCron,
		"ics_count", len(cfg.ICS),
		"google", cfg.Google.Enabled(),
	)

	// Without a save schedule every change is written immediately.
	saveOnChange := cfg.SaveCron == ""
	sess, err := a.openSession(ctx, saveOnChange)
	if err != nil {
		return err
	}

	sched := jobs.NewScheduler(cfg.Location())
	if !saveOnChange {
		if err := sched.Add("save", cfg.SaveCron, jobs.SaveJob(sess)); err != nil {
			return err
		}
	}

	srv := web.NewServer(cfg, sess)
	refresher, err := a.refresher(ctx, sess)
	if err != nil {
		return err
	}
	if refresher != nil {
		if err := sched.Add("refresh", cfg.RefreshCron, refresher.Run); err != nil {
			return err
		}
		srv.SetRefresher(refresher.Run)
		go func() {
			if err := refresher.Run(ctx); err != nil {
				appLog.Error("initial refresh failed", err)
			}
		}()
	}

	sched.Start()
	serveErr := srv.ListenAndServe(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(stopCtx)
	if err := sess.Flush(stopCtx); err != nil {
		appLog.Error("final save failed", err)
	}
	return serveErr
}

// refresher returns nil when no calendars are configured.
func (a *app) refresher(ctx context.Context, sess *session.Session) (*jobs.Refresher, error) {
	cfg := a.cfg
	r := &jobs.Refresher{Session: sess}

	if len(cfg.ICS) > 0 {
		cacheDir, err := cfg.DataPath("ics-cache")
		if err != nil {
			return nil, err
		}
		r.Fetcher = ics.NewFetcher(cacheDir)
		for _, c := range cfg.ICS {
			provider, err := model.ParseSource(c.Provider)
			if err != nil {
				return nil, err
			}
			r.Sources = append(r.Sources, ics.Source{ID: c.ID, URL: c.URL, Name: c.Name, Provider: provider})
		}
	}

	if cfg.Google.Enabled() {
		client, err := gcal.New(ctx, *cfg.Google)
		if err != nil {
			// A missing token should not keep the planner from starting.
			appLog.Error("google calendar disabled", err)
		} else {
			r.Google = client
		}
	}

	if r.Fetcher == nil && r.Google == nil {
		return nil, nil
	}
	return r, nil
}

// Package cli is the weekplan command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"weekplan/internal/config"
	"weekplan/internal/ledger"
	appLog "weekplan/internal/log"
	"weekplan/internal/persist"
	"weekplan/internal/session"
)

const defaultConfigPath = "~/.weekplan/config.yaml"

// app carries state shared by subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	jsonOutput bool

	cfg *config.Config
}

// New builds the root command.
func New(version string) *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:     "weekplan",
		Version: version,
		Short:   "A weekly planner for tasks and events that never double-books you",
		Long: `weekplan keeps your tasks and calendar events in one ledger.

Scheduling a task or moving an event onto time that is already taken is
refused with the list of conflicts. Run "weekplan serve" for the HTTP API,
or use the other commands to look at your day and week from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", a.configPath, err)
			}
			a.cfg = cfg
			level := cfg.LogLevel
			if a.logLevel != "" {
				level = a.logLevel
			}
			appLog.SetLevel(appLog.ParseLevel(level))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "Path to config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	cmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")

	cmd.AddGroup(
		&cobra.Group{ID: "planner", Title: "Planner:"},
		&cobra.Group{ID: "calendars", Title: "Calendars:"},
	)

	for _, c := range []*cobra.Command{
		a.dayCmd(),
		a.weekCmd(),
		a.tasksCmd(),
		a.serveCmd(),
	} {
		c.GroupID = "planner"
		cmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		a.importICSCmd(),
		a.exportICSCmd(),
		a.gcalAuthCmd(),
	} {
		c.GroupID = "calendars"
		cmd.AddCommand(c)
	}
	return cmd
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, version string) error {
	return New(version).ExecuteContext(ctx)
}

func (a *app) ledgerOptions() []ledger.Option {
	opts := []ledger.Option{
		ledger.WithLocation(a.cfg.Location()),
		ledger.WithCurrentUser(a.cfg.UserID),
	}
	if len(a.cfg.Collaborators) > 0 {
		opts = append(opts, ledger.WithCollaborators(a.cfg.Collaborators))
	}
	return opts
}

// openSession loads the configured user's planner from the data dir.
func (a *app) openSession(ctx context.Context, saveOnChange bool) (*session.Session, error) {
	dir, err := a.cfg.DataPath("state")
	if err != nil {
		return nil, err
	}
	return session.Open(ctx, session.Options{
		UserID:        a.cfg.UserID,
		Store:         persist.NewDiskStore(dir),
		LedgerOptions: a.ledgerOptions(),
		SeedDemo:      a.cfg.SeedDemo,
		SaveOnChange:  saveOnChange,
	})
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

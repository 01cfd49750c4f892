package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"weekplan/internal/gcal"
	"weekplan/internal/ics"
	"weekplan/internal/ledger"
	"weekplan/internal/model"
)

func (a *app) importICSCmd() *cobra.Command {
	var (
		sourceID string
		provider string
	)
	cmd := &cobra.Command{
		Use:   "import-ics <file>",
		Short: "Import events from an .ics file",
		Example: `
weekplan import-ics holidays.ics --id holidays --provider apple
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := model.ParseSource(provider)
			if err != nil {
				return err
			}
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if sourceID == "" {
				sourceID = "file"
			}
			source := ics.Source{ID: sourceID, URL: "file://" + args[0], Provider: src}
			events, err := ics.ParseICS(source, body)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			sess, err := a.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			var stats ics.SyncStats
			if err := sess.Update(cmd.Context(), func(l *ledger.Ledger) error {
				stats = ics.Apply(l, source, events)
				return nil
			}); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if a.jsonOutput {
				return writeJSONTo(w, stats)
			}
			printSuccess(w, fmt.Sprintf("imported %s: %d new, %d updated, %d removed",
				args[0], stats.Created, stats.Updated, stats.Removed))
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceID, "id", "", "Subscription id; re-importing with the same id replaces earlier events")
	cmd.Flags().StringVar(&provider, "provider", "", "Event source (local, google, outlook, apple, fastmail)")
	return cmd
}

func (a *app) exportICSCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Export scheduled tasks and events as iCalendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			var body string
			sess.View(func(l *ledger.Ledger) { body = ics.Export(l.Items(), l.Now()) })

			if out == "" || out == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(out, []byte(body), 0o600); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "wrote "+out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func (a *app) gcalAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gcal-auth",
		Short: "Authorize read access to Google Calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gc := a.cfg.Google
			if gc == nil || gc.CredentialsFile == "" || gc.TokenFile == "" {
				return fmt.Errorf("set google.credentials_file and google.token_file in %s first", a.configPath)
			}
			oc, err := gcal.OAuthConfig(gc.CredentialsFile)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Open this URL in your browser and paste the code below:\n%s\n\ncode: ", gcal.AuthCodeURL(oc))
			code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(code) == "" {
				return fmt.Errorf("read code: %w", err)
			}
			if err := gcal.ExchangeAndSave(cmd.Context(), oc, code, gc.TokenFile); err != nil {
				return err
			}
			printSuccess(w, "token saved to "+gc.TokenFile)
			return nil
		},
	}
}

package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"weekplan/internal/ledger"
	"weekplan/internal/model"
)

func (a *app) dayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "Show everything planned on a day (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}

			var (
				day   time.Time
				items []model.Item
				loc   *time.Location
				now   time.Time
			)
			var parseErr error
			sess.View(func(l *ledger.Ledger) {
				loc, now = l.Location(), l.Now()
				day = l.SelectedDate()
				if len(args) == 1 {
					if day, parseErr = time.ParseInLocation(model.DateLayout, args[0], loc); parseErr != nil {
						return
					}
				}
				items = l.ItemsForDay(day)
			})
			if parseErr != nil {
				return fmt.Errorf("date must be YYYY-MM-DD: %w", parseErr)
			}

			w := cmd.OutOrStdout()
			if a.jsonOutput {
				return writeJSONTo(w, ledger.Day{Date: day, Items: items})
			}
			printHeader(w, day.Format("Monday, 2 January 2006"))
			printItems(w, items, loc, now)
			return nil
		},
	}
}

func (a *app) weekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week [offset]",
		Short: "Show the week, optionally moved by offset weeks (e.g. -1, 2)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("offset must be an integer: %w", err)
				}
				offset = n
			}

			sess, err := a.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}

			var (
				days []ledger.Day
				loc  *time.Location
				now  time.Time
				rerr error
			)
			sess.View(func(l *ledger.Ledger) {
				loc, now = l.Location(), l.Now()
				// Navigate a scratch copy so the saved week is left alone.
				var scratch *ledger.Ledger
				if scratch, rerr = ledger.Restore(l.Snapshot(), ledger.WithLocation(loc)); rerr != nil {
					return
				}
				scratch.GoToWeek(offset)
				days = scratch.ItemsForWeek()
			})
			if rerr != nil {
				return rerr
			}

			w := cmd.OutOrStdout()
			if a.jsonOutput {
				return writeJSONTo(w, days)
			}
			for _, d := range days {
				printHeader(w, d.Date.Format("Mon 2 Jan"))
				printItems(w, d.Items, loc, now)
			}
			return nil
		},
	}
}

func (a *app) tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List tasks grouped by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}

			var (
				groups []ledger.TaskGroup
				loc    *time.Location
				now    time.Time
			)
			sess.View(func(l *ledger.Ledger) {
				loc, now = l.Location(), l.Now()
				groups = l.TaskGroups(now)
			})

			w := cmd.OutOrStdout()
			if a.jsonOutput {
				return writeJSONTo(w, groups)
			}
			for _, g := range groups {
				printTaskGroup(w, g.Category, g.Tasks, now, loc)
			}
			return nil
		},
	}
}

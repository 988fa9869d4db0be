package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/rendezvous/internal/adapters/repository"
	app "github.com/okian/rendezvous/internal/app"
	"github.com/okian/rendezvous/internal/domain/availability"
	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/pkg/logger"
)

type rootOptions struct {
	dbPath  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "rendezvousctl",
		Short:         "Find and book times a group can meet",
		Long:          `rendezvousctl reads member calendars from a SQLite database, computes shared availability and writes confirmed meetings back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "rendezvous.db", "SQLite database file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSlotsCmd(opts), newImportCmd(opts), newConfirmCmd(opts))
	return root
}

// withService opens the database, runs fn against a started service and
// closes everything afterwards.
func withService(ctx context.Context, opts *rootOptions, fn func(*app.Service) error) error {
	store, err := repository.NewSQLiteStore(ctx, opts.dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.dbPath, err)
	}
	svc := app.New(app.WithStore(store), app.WithReadTimeout(0))
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return err
	}
	defer svc.Stop()
	return fn(svc)
}

func memberIDs(names []string) []model.MemberID {
	out := make([]model.MemberID, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, model.MemberID(n))
		}
	}
	return out
}

func newSlotsCmd(root *rootOptions) *cobra.Command {
	var (
		members            []string
		from, to           string
		startHour, endHour int
		minDuration        int
	)
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List available and negotiable slots for a group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := availability.Query{
				Members:     memberIDs(members),
				Window:      &availability.Window{Start: model.HourMinute(startHour, 0), End: model.HourMinute(endHour, 0)},
				MinDuration: minDuration,
			}
			if err := parseDates(from, to, &q.From, &q.To); err != nil {
				return err
			}
			return withService(cmd.Context(), root, func(svc *app.Service) error {
				slots, err := svc.Availability(cmd.Context(), q)
				if err != nil {
					return err
				}
				printSlots(cmd.OutOrStdout(), slots)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&members, "members", nil, "comma separated member ids")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default from + 7 days)")
	cmd.Flags().IntVar(&startHour, "start-hour", 9, "work window start hour")
	cmd.Flags().IntVar(&endHour, "end-hour", 21, "work window end hour")
	cmd.Flags().IntVar(&minDuration, "min", 60, "minimum slot length in minutes")
	_ = cmd.MarkFlagRequired("members")
	return cmd
}

func parseDates(from, to string, outFrom, outTo *model.Date) error {
	if from != "" {
		d, err := model.ParseDate(from)
		if err != nil {
			return err
		}
		*outFrom = d
	}
	if to != "" {
		d, err := model.ParseDate(to)
		if err != nil {
			return err
		}
		*outTo = d
	}
	if from == "" && to != "" {
		return fmt.Errorf("--to needs --from")
	}
	return nil
}

func printSlots(w io.Writer, slots []model.AvailabilitySlot) {
	if len(slots) == 0 {
		fmt.Fprintln(w, "no slots")
		return
	}
	for _, s := range slots {
		line := fmt.Sprintf("%s  %s-%s  %-10s", s.Date, s.Start, s.End, s.Classification)
		if len(s.ConflictingMembers) > 0 {
			names := make([]string, len(s.ConflictingMembers))
			for i, m := range s.ConflictingMembers {
				names[i] = string(m)
			}
			line += "  " + strings.Join(names, ",")
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var member, file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an iCalendar file into a member's calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			return withService(cmd.Context(), root, func(svc *app.Service) error {
				rep, err := svc.ImportICS(cmd.Context(), model.MemberID(member), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d events for %s (%d skipped)\n", rep.Imported, member, rep.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "member id")
	cmd.Flags().StringVar(&file, "file", "", "path to a .ics file")
	_ = cmd.MarkFlagRequired("member")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newConfirmCmd(root *rootOptions) *cobra.Command {
	var (
		members                []string
		date, start, end       string
		title, location, group string
	)
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Write a meeting to every member's calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := model.MeetingRequest{
				GroupID:  group,
				Title:    title,
				Location: location,
				Members:  memberIDs(members),
			}
			var err error
			if req.Date, err = model.ParseDate(date); err != nil {
				return err
			}
			if req.Start, err = model.ParseClock(start); err != nil {
				return err
			}
			if req.End, err = model.ParseClock(end); err != nil {
				return err
			}

			return withService(cmd.Context(), root, func(svc *app.Service) error {
				res, err := svc.Materialize(cmd.Context(), req, "")
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, o := range res.Outcomes {
					if o.Err != nil {
						fmt.Fprintf(out, "%s  failed: %v\n", o.Member, o.Err)
						continue
					}
					fmt.Fprintf(out, "%s  added %s\n", o.Member, o.EventID)
				}
				fmt.Fprintln(out, res.Summary())
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&members, "members", nil, "comma separated member ids")
	cmd.Flags().StringVar(&date, "date", "", "meeting day, YYYY-MM-DD")
	cmd.Flags().StringVar(&start, "start", "", "start time, HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "end time, HH:MM")
	cmd.Flags().StringVar(&title, "title", "", "meeting title")
	cmd.Flags().StringVar(&location, "location", "", "meeting location")
	cmd.Flags().StringVar(&group, "group", "", "group id stored on each event")
	for _, f := range []string{"members", "date", "start", "end", "title"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

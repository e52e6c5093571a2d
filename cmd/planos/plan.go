package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"planos/internal/app"
	"planos/internal/calendar"
	"planos/internal/events"
	"planos/internal/interpreter"
	appLog "planos/internal/log"
	"planos/internal/tui"
)

func newInterpretCmd(opts *rootOptions) *cobra.Command {
	var (
		week  int
		apply bool
		user  string
	)
	cmd := &cobra.Command{
		Use:   "interpret <utterance>",
		Short: "Turn a request into events for the week and print them as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, saved, err := a.Plan(cmd.Context(), user, strings.Join(args, " "), week, apply)
			if err != nil && res.Message == "" {
				return err
			}
			if err != nil {
				appLog.Warn("interpreter failed", "err", err)
			}
			out := struct {
				interpreter.Result
				Saved []calendar.Event `json:"saved,omitempty"`
			}{res, saved}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&week, "week", "w", 0, "week offset from the current week")
	cmd.Flags().BoolVar(&apply, "apply", false, "store the proposed events")
	cmd.Flags().StringVarP(&user, "user", "u", "local", "calendar owner")
	return cmd
}

func newWeekCmd(opts *rootOptions) *cobra.Command {
	var (
		week int
		user string
	)
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Print a week of the calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = io.WriteString(cmd.OutOrStdout(), app.FormatWeek(a.Week(user, week), a.Config.Language))
			return err
		},
	}
	cmd.Flags().IntVarP(&week, "week", "w", 0, "week offset from the current week")
	cmd.Flags().StringVarP(&user, "user", "u", "local", "calendar owner")
	return cmd
}

// newLayoutCmd reads a JSON array of events from stdin and prints them with
// their column assignment, day by day.
func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Assign display columns to events read from stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var evs []calendar.Event
			if err := json.NewDecoder(cmd.InOrStdin()).Decode(&evs); err != nil {
				return fmt.Errorf("decode events: %w", err)
			}
			byDay := make(map[[2]int][]calendar.Event)
			var keys [][2]int
			for _, e := range evs {
				k := [2]int{e.Week, e.Day}
				if _, ok := byDay[k]; !ok {
					keys = append(keys, k)
				}
				byDay[k] = append(byDay[k], e)
			}
			sort.Slice(keys, func(i, j int) bool {
				if keys[i][0] != keys[j][0] {
					return keys[i][0] < keys[j][0]
				}
				return keys[i][1] < keys[j][1]
			})
			out := []events.Positioned{}
			for _, k := range keys {
				out = append(out, events.Position(byDay[k])...)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive week view",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			// The view owns the terminal.
			appLog.SetOutput(io.Discard)
			return tui.Run(a, user, a.Config.Language)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "local", "calendar owner")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"grantline/internal/calendar"
	"grantline/internal/deadline"
	"grantline/internal/engine"
	"grantline/internal/repo"
)

var urgencyColors = map[deadline.Urgency]text.Colors{
	deadline.Overdue: {text.FgRed, text.Bold},
	deadline.Urgent:  {text.FgRed},
	deadline.Soon:    {text.FgYellow},
	deadline.OK:      {text.FgGreen},
	deadline.Future:  {text.FgHiBlack},
}

func urgencyCell(u deadline.Urgency) string {
	if c, ok := urgencyColors[u]; ok {
		return c.Sprint(string(u))
	}
	return string(u)
}

func renderTimeline(entries []deadline.TimelineEntry) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"", "Milestone", "Date", "Owner", "Days", "Business days", "Urgency"})
	for _, e := range entries {
		marker := ""
		switch {
		case e.Next:
			marker = "→"
		case e.Passed:
			marker = "✓"
		}
		tw.AppendRow(table.Row{marker, e.Label, e.Date, e.Owner, e.DaysUntil, e.BusinessDaysLeft, urgencyCell(e.Urgency)})
	}
	tw.Render()
}

func milestonesCmd() *cobra.Command {
	var deadlineDate string
	cmd := &cobra.Command{
		Use:   "milestones",
		Short: "Derive the milestones of a sponsor deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entries, err := e.Milestones(deadlineDate)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(entries)
				}
				renderTimeline(entries)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&deadlineDate, "deadline", "", "sponsor deadline (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

func timelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <grant-id>",
		Short: "Show the milestone checklist of a grant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tl, err := e.Timeline(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(tl)
				}
				fmt.Printf("%s (%s), today %s\n", tl.Grant.Title, tl.Grant.Status, tl.Today)
				if len(tl.Entries) == 0 {
					fmt.Println("No deadline set.")
					return nil
				}
				renderTimeline(tl.Entries)
				return nil
			})
		},
	}
}

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Grants whose next milestone needs attention",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				alerts, err := e.Alerts(ctx)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(alerts)
				}
				if len(alerts) == 0 {
					fmt.Println("Nothing due in the next two weeks.")
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Grant", "Next milestone", "Date", "Days", "Urgency"})
				for _, a := range alerts {
					tw.AppendRow(table.Row{a.GrantTitle, a.Milestone.Label, a.Milestone.Date, a.DaysUntil, urgencyCell(a.Urgency)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Create and retire milestone tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SyncMilestoneTasks(ctx, actorID())
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(res)
				}
				fmt.Printf("Sync as of %s: %d created, %d retired, %d kept\n", res.Today, len(res.Created), len(res.Retired), res.Kept)
				return nil
			})
		},
	}
}

func holidaysCmd() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List institutional holidays",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var days []string
				for _, d := range e.Holidays() {
					if year != 0 {
						parsed, err := calendar.ParseDate(d)
						if err != nil || parsed.Year() != year {
							continue
						}
					}
					days = append(days, d)
				}
				if jsonOutput() {
					return printJSON(days)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Date", "Weekday"})
				for _, d := range days {
					parsed, _ := calendar.ParseDate(d)
					tw.AppendRow(table.Row{d, parsed.Weekday()})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "only holidays of this year")
	return cmd
}

func eventsCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.ListEvents(ctx, f)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Entity", "Actor"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + " " + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind (grant, task, sync)")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

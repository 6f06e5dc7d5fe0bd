package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"grantline/internal/domain"
	"grantline/internal/engine"
	"grantline/internal/repo"
)

func grantCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "grant", Short: "Manage grant proposals"}
	cmd.AddCommand(grantAddCmd())
	cmd.AddCommand(grantListCmd())
	cmd.AddCommand(grantShowCmd())
	cmd.AddCommand(grantUpdateCmd())
	cmd.AddCommand(grantDeleteCmd())
	return cmd
}

func grantAddCmd() *cobra.Command {
	var opts engine.GrantCreateOptions
	var deadline string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a grant proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Deadline = optionalString(cmd, "deadline", deadline)
			opts.ActorID = actorID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.CreateGrant(ctx, opts)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(g)
				}
				fmt.Printf("Created grant %s\n", g.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "grant id (generated when empty)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "proposal title")
	cmd.Flags().StringVar(&opts.Sponsor, "sponsor", "", "sponsor name")
	cmd.Flags().StringVar(&deadline, "deadline", "", "sponsor deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Status, "status", domain.GrantNotStarted, "status: "+strings.Join(domain.GrantStatuses, ", "))
	cmd.Flags().StringSliceVar(&opts.PI, "pi", nil, "principal investigators, lead first")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func grantListCmd() *cobra.Command {
	var f repo.GrantFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List grants by deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				grants, err := e.ListGrants(ctx, f)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(grants)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Sponsor", "Deadline", "Status", "Lead PI"})
				for _, g := range grants {
					tw.AppendRow(table.Row{g.ID, g.Title, g.Sponsor, deref(g.Deadline), g.Status, g.LeadPI()})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().BoolVar(&f.ActiveOnly, "active", false, "only grants still in preparation")
	return cmd
}

func grantShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <grant-id>",
		Short: "Show a grant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.GetGrant(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(g)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRows([]table.Row{
					{"ID", g.ID},
					{"Title", g.Title},
					{"Sponsor", g.Sponsor},
					{"Deadline", deref(g.Deadline)},
					{"Status", g.Status},
					{"PI", strings.Join(g.PI, ", ")},
					{"Notes", g.Notes},
					{"Updated", g.UpdatedAt},
				})
				tw.Render()
				return nil
			})
		},
	}
}

func grantUpdateCmd() *cobra.Command {
	var title, sponsor, deadline, status, notes string
	var pi []string
	cmd := &cobra.Command{
		Use:   "update <grant-id>",
		Short: "Update a grant",
		Long:  "Only the flags given are changed. Pass --deadline \"\" to clear the deadline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.GrantUpdateOptions{
				ID:       args[0],
				Title:    optionalString(cmd, "title", title),
				Sponsor:  optionalString(cmd, "sponsor", sponsor),
				Deadline: optionalString(cmd, "deadline", deadline),
				Status:   optionalString(cmd, "status", status),
				Notes:    optionalString(cmd, "notes", notes),
				ActorID:  actorID(),
			}
			if cmd.Flags().Changed("pi") {
				opts.PI = &pi
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.UpdateGrant(ctx, opts)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(g)
				}
				fmt.Printf("Updated grant %s (%s)\n", g.ID, g.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "proposal title")
	cmd.Flags().StringVar(&sponsor, "sponsor", "", "sponsor name")
	cmd.Flags().StringVar(&deadline, "deadline", "", "sponsor deadline (YYYY-MM-DD), empty clears")
	cmd.Flags().StringVar(&status, "status", "", "status: "+strings.Join(domain.GrantStatuses, ", "))
	cmd.Flags().StringSliceVar(&pi, "pi", nil, "principal investigators, lead first")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func grantDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <grant-id>",
		Short: "Delete a grant",
		Long:  "Its milestone tasks are removed by the next sync.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteGrant(ctx, args[0], actorID()); err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(map[string]string{"deleted": args[0]})
				}
				fmt.Printf("Deleted grant %s\n", args[0])
				return nil
			})
		},
	}
}

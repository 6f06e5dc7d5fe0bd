package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"grantline/internal/domain"
	"grantline/internal/engine"
	"grantline/internal/repo"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskDeleteCmd())
	return cmd
}

func taskAddCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var due string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DueDate = optionalString(cmd, "due", due)
			opts.ActorID = actorID()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(t)
				}
				fmt.Printf("Created task %s\n", t.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "task id (generated when empty)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.GrantID, "grant", "", "related grant id")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Status, "status", domain.TaskPending, "pending, in_progress or completed")
	cmd.Flags().StringVar(&opts.Priority, "priority", domain.PriorityMedium, "low, medium or high")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "assignee")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	var milestones, user, sync bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by due date",
		Long:  "With --sync milestone tasks are reconciled against the grants before listing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if milestones && user {
				return fmt.Errorf("--milestones and --user are mutually exclusive")
			}
			if milestones || user {
				derived := milestones
				f.Derived = &derived
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, f, sync, actorID())
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(tasks)
				}
				renderTasks(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.GrantID, "grant", "", "grant filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Assignee, "assignee", "", "assignee filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum number of tasks")
	cmd.Flags().BoolVar(&milestones, "milestones", false, "only milestone tasks")
	cmd.Flags().BoolVar(&user, "user", false, "only user tasks")
	cmd.Flags().BoolVar(&sync, "sync", false, "sync milestone tasks first")
	return cmd
}

func renderTasks(tasks []domain.Task) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Due", "Status", "Priority", "Assignee"})
	for _, t := range tasks {
		tw.AppendRow(table.Row{t.ID, t.Title, deref(t.DueDate), t.Status, t.Priority, t.Assignee})
	}
	tw.Render()
}

func taskUpdateCmd() *cobra.Command {
	var title, description, due, status, priority, assignee string
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task",
		Long:  "Only the flags given are changed. Edits to milestone tasks are kept by later syncs.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TaskUpdateOptions{
				ID:          args[0],
				Title:       optionalString(cmd, "title", title),
				Description: optionalString(cmd, "description", description),
				DueDate:     optionalString(cmd, "due", due),
				Status:      optionalString(cmd, "status", status),
				Priority:    optionalString(cmd, "priority", priority),
				Assignee:    optionalString(cmd, "assignee", assignee),
				ActorID:     actorID(),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(t)
				}
				fmt.Printf("Updated task %s (%s)\n", t.ID, t.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD), empty clears")
	cmd.Flags().StringVar(&status, "status", "", "pending, in_progress or completed")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteTask(ctx, args[0], actorID()); err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(map[string]string{"deleted": args[0]})
				}
				fmt.Printf("Deleted task %s\n", args[0])
				return nil
			})
		},
	}
}

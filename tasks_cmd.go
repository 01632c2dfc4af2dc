package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kanban-board/domain"
	"kanban-board/kanban"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the board grouped by column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, _, err := opts.newStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Load(cmd.Context()); err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), store.Snapshot())
			return nil
		},
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var description, status string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(args[0])
			if title == "" {
				return fmt.Errorf("title is required")
			}
			st, err := parseStatusFlag(status)
			if err != nil {
				return err
			}
			store, _, _, err := opts.newStore(cmd)
			if err != nil {
				return err
			}
			task, err := store.CreateTask(cmd.Context(), domain.CreatePayload{
				Title:       title,
				Description: strings.TrimSpace(description),
				Status:      st,
			})
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&status, "status", "s", string(domain.StatusTodo), "Column code or label")
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var title, description, status string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title, description or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields domain.TaskFields
			if cmd.Flags().Changed("title") {
				t := strings.TrimSpace(title)
				if t == "" {
					return fmt.Errorf("title is required")
				}
				fields.Title = &t
			}
			if cmd.Flags().Changed("description") {
				fields.Description = domain.StrPtr(description)
			}
			if cmd.Flags().Changed("status") {
				st, err := parseStatusFlag(status)
				if err != nil {
					return err
				}
				fields.Status = &st
			}
			if fields.Empty() {
				return fmt.Errorf("nothing to change: pass --title, --description or --status")
			}
			return updateTask(cmd, opts, args[0], fields)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "New column code or label")
	return cmd
}

func newMoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseStatusFlag(args[1])
			if err != nil {
				return err
			}
			return updateTask(cmd, opts, args[0], domain.TaskFields{Status: &st})
		},
	}
}

func newRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, _, err := opts.newStore(cmd)
			if err != nil {
				return err
			}
			if err := store.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

// updateTask loads the board first so the full record can be merged and sent.
func updateTask(cmd *cobra.Command, opts *rootOptions, id string, fields domain.TaskFields) error {
	store, _, _, err := opts.newStore(cmd)
	if err != nil {
		return err
	}
	if err := store.Load(cmd.Context()); err != nil {
		return err
	}
	task, err := store.UpdateTask(cmd.Context(), id, fields)
	if err != nil {
		return err
	}
	printTask(cmd.OutOrStdout(), task)
	return nil
}

func parseStatusFlag(raw string) (domain.Status, error) {
	st, ok := domain.ParseStatus(raw)
	if !ok {
		return "", fmt.Errorf("unknown status %q (want todo, in-progress or done)", raw)
	}
	return st, nil
}

func printBoard(w io.Writer, b kanban.Board) {
	for i, col := range b.Columns {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", col.Name, len(col.Items))
		for _, t := range col.Items {
			fmt.Fprintf(w, "  %s  %s  %s\n", t.ID, t.Title, t.CreatedDate())
		}
	}
}

func printTask(w io.Writer, t domain.Task) {
	desc := t.Description
	if desc == "" {
		desc = "No description"
	}
	fmt.Fprintf(w, "%s  %s  [%s]\n  %s\n", t.ID, t.Title, t.Status.Label(), desc)
	if d := t.CreatedDate(); d != "" {
		fmt.Fprintf(w, "  created %s\n", d)
	}
}

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shrink/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the task queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRotateCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter queue.Status
			if statusFlag != "" {
				parsed, ok := queue.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFlag)
				}
				filter = parsed
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			tasks, err := store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(tasks))
			for _, task := range tasks {
				if filter != "" && task.Status != filter {
					continue
				}
				rows = append(rows, []string{
					shortID(task.ID.String()),
					task.Path,
					task.Resolution + "p",
					string(task.Status),
					task.AddedAt.Local().Format(time.DateTime),
					formatSize(task.SizeBefore),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "File", "Target", "Status", "Added", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show tasks with this status")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove tasks from the live queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			if statusFlag != "" {
				parsed, ok := queue.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFlag)
				}
				statuses = append(statuses, parsed)
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			removed, err := store.Clear(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d task(s).\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only remove tasks with this status")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Re-queue tasks stuck in processing after a crash",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			reset, err := store.ResetProcessing(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d task(s) to queued.\n", reset)
			return nil
		},
	}
}

func newQueueRotateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Archive terminal tasks and truncate the live store now",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			result, err := store.Rotate(cmd.Context())
			if err != nil {
				return err
			}
			if result.Total() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to rotate.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d processed and %d failed/errored task(s).\n",
				result.Processed, result.Errored)
			if result.SuccessFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", result.SuccessFile)
			}
			if result.ErrorFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", result.ErrorFile)
			}
			return nil
		},
	}
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return strconv.FormatInt(bytes, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

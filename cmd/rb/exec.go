package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyreward/rewardbook/internal/api"
	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/service"
	"github.com/studyreward/rewardbook/internal/ui"
)

var startCmd = &cobra.Command{
	Use:     "start <task>",
	GroupID: "track",
	Short:   "Start timing a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		t, err := resolveTemplate(ctx, c, args[0])
		if err != nil {
			return err
		}
		e, err := c.StartExecution(ctx, service.StartRequest{TaskTemplateID: t.ID})
		if err != nil {
			return err
		}
		fmt.Printf("%s Started %s at %s\n", ui.RenderPass("▶"), ui.RenderAccent(e.TaskName),
			time.UnixMilli(e.StartTime).Format("15:04:05"))
		return nil
	},
}

// transitionCmd builds pause, resume and cancel, which share their shape.
func transitionCmd(use, short string, render func(string) string, marker, verb string,
	do func(c api.Client, ctx context.Context, id string) (*schema.TaskExecution, error)) *cobra.Command {
	return &cobra.Command{
		Use:     use + " [execution-id]",
		GroupID: "track",
		Short:   short,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := client()
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := cmdContext()
			defer cancel()

			id, err := executionRef(ctx, c, args)
			if err != nil {
				return err
			}
			e, err := do(c, ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s %s\n", render(marker), verb, e.TaskName)
			return nil
		},
	}
}

var (
	pauseCmd = transitionCmd("pause", "Pause the running task", ui.RenderWarn, "⏸", "Paused",
		api.Client.PauseExecution)
	resumeCmd = transitionCmd("resume", "Resume the paused task", ui.RenderPass, "▶", "Resumed",
		api.Client.ResumeExecution)
	cancelCmd = transitionCmd("cancel", "Abandon the active task without points", ui.RenderMuted, "■", "Cancelled",
		api.Client.CancelExecution)
)

var completeCmd = &cobra.Command{
	Use:     "done [execution-id]",
	Aliases: []string{"complete"},
	GroupID: "track",
	Short:   "Complete the active task and collect points",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		id, err := executionRef(ctx, c, args)
		if err != nil {
			return err
		}
		res, err := c.CompleteExecution(ctx, id)
		if err != nil {
			return err
		}
		e := res.Execution
		if res.Reward == 0 {
			fmt.Printf("%s Completed %s after %d minutes, no points earned\n",
				ui.RenderWarn("✓"), e.TaskName, e.ActualDuration)
			return nil
		}
		fmt.Printf("%s Completed %s: %d minutes, %s\n", ui.RenderPass("✓"), e.TaskName,
			e.ActualDuration, ui.RenderPoints("+"+ledger.FormatNumber(res.Reward)))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "track",
	Short:   "Show the active task and the point balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		points, err := c.Points(ctx)
		if err != nil {
			return err
		}
		e, err := c.ActiveExecution(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Points: %s\n", ui.RenderPoints(ledger.FormatNumber(points)))
		if e == nil {
			fmt.Println(ui.RenderMuted("No active task"))
			return nil
		}
		now := time.Now().UnixMilli()
		paused := e.TotalPausedDuration
		if e.Status == schema.StatusPaused && e.PausedTime > 0 {
			paused += float64(now-e.PausedTime) / 1000
		}
		minutes := ledger.ElapsedMinutes(e.StartTime, now, paused)
		fmt.Printf("%s %s (%s): %d minutes so far\n", statusMarker(e.Status), ui.RenderAccent(e.TaskName),
			e.Status, minutes)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "track",
	Short:   "List task executions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		execs, err := c.ListExecutions(ctx)
		if err != nil {
			return err
		}
		// newest first
		rows := make([][]string, 0, len(execs))
		for i := len(execs) - 1; i >= 0 && (limit <= 0 || len(rows) < limit); i-- {
			e := execs[i]
			minutes, reward := "", ""
			if e.Status == schema.StatusCompleted {
				minutes = fmt.Sprintf("%d", e.ActualDuration)
				reward = ledger.FormatNumber(e.ActualReward)
			}
			rows = append(rows, []string{
				e.ID,
				e.TaskName,
				time.UnixMilli(e.StartTime).Format("2006-01-02 15:04"),
				string(e.Status),
				minutes,
				reward,
			})
		}
		fmt.Println(ui.Table([]string{"ID", "Task", "Started", "Status", "Minutes", "Points"}, rows))
		return nil
	},
}

// executionRef returns the explicit id or the active execution's id.
func executionRef(ctx context.Context, c api.Client, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	e, err := c.ActiveExecution(ctx)
	if err != nil {
		return "", err
	}
	if e == nil {
		return "", service.NewError(service.ErrInvalidState, "no active task")
	}
	return e.ID, nil
}

func statusMarker(s schema.ExecutionStatus) string {
	switch s {
	case schema.StatusRunning:
		return ui.RenderPass("▶")
	case schema.StatusPaused:
		return ui.RenderWarn("⏸")
	default:
		return ui.RenderMuted("■")
	}
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "maximum rows (0 for all)")

	rootCmd.AddCommand(startCmd, pauseCmd, resumeCmd, cancelCmd, completeCmd, statusCmd, historyCmd)
}

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/service"
	"github.com/studyreward/rewardbook/internal/ui"
)

var pointsCmd = &cobra.Command{
	Use:     "points",
	GroupID: "track",
	Short:   "Show the point balance",
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
		fmt.Println(ui.RenderPoints(ledger.FormatNumber(points)))
		return nil
	},
}

var pointsLogCmd = &cobra.Command{
	Use:   "log",
	Short: "List point records, newest first",
	Long: `List point records, newest first. Completed tasks that earned nothing
are listed too.

--since and --until take RFC 3339 timestamps, dates (2024-01-31) or
phrases such as "yesterday" or "last monday".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		sinceStr, _ := cmd.Flags().GetString("since")
		untilStr, _ := cmd.Flags().GetString("until")

		now := time.Now()
		q := service.RecordQuery{Type: schema.RecordType(typ), Page: page, PageSize: size}
		if sinceStr != "" {
			t, err := parseTime(sinceStr, now)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			q.Since = t.UnixMilli()
		}
		if untilStr != "" {
			t, err := parseTime(untilStr, now)
			if err != nil {
				return fmt.Errorf("invalid --until: %w", err)
			}
			q.Until = t.UnixMilli()
		}

		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		res, err := c.PointRecords(ctx, q)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(res.Data))
		for _, r := range res.Data {
			amount := ledger.FormatNumber(r.Amount)
			switch r.Type {
			case schema.RecordEarn:
				amount = ui.RenderPass("+" + amount)
			case schema.RecordSpend:
				amount = ui.RenderFail("-" + amount)
			}
			rows = append(rows, []string{
				time.UnixMilli(r.Timestamp).Format("2006-01-02 15:04"),
				amount,
				r.Description,
			})
		}
		fmt.Println(ui.Table([]string{"Time", "Points", "Description"}, rows))

		pages := (res.Total + res.PageSize - 1) / res.PageSize
		fmt.Println(ui.RenderMuted(fmt.Sprintf("page %d of %d (%d records)", res.Page, max(pages, 1), res.Total)))
		return nil
	},
}

var inventoryCmd = &cobra.Command{
	Use:     "inventory",
	Aliases: []string{"inv"},
	GroupID: "track",
	Short:   "Show what points have bought",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		items, err := c.Inventory(ctx)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println(ui.RenderMuted("Inventory is empty"))
			return nil
		}
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			rows = append(rows, []string{it.ProductName, ledger.FormatNumber(it.Quantity) + it.Unit})
		}
		fmt.Println(ui.Table([]string{"Product", "Quantity"}, rows))
		return nil
	},
}

// parseTime accepts RFC 3339, a plain date or a natural-language phrase.
func parseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q", s)
	}
	return r.Time, nil
}

func init() {
	pointsLogCmd.Flags().StringP("type", "t", "", "earn or spend")
	pointsLogCmd.Flags().IntP("page", "p", 1, "page number")
	pointsLogCmd.Flags().IntP("size", "n", 20, "records per page")
	pointsLogCmd.Flags().String("since", "", "only records at or after this time")
	pointsLogCmd.Flags().String("until", "", "only records before this time")

	pointsCmd.AddCommand(pointsLogCmd)
	rootCmd.AddCommand(pointsCmd, inventoryCmd)
}

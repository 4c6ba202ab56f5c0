package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/service"
	"github.com/studyreward/rewardbook/internal/storage"
	"github.com/studyreward/rewardbook/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "data",
	Short:   "Export all data to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = fmt.Sprintf("rewardbook-%s.json", time.Now().Format("2006-01-02"))
		}

		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		data, err := c.Export(ctx)
		if err != nil {
			return err
		}
		if out == "-" {
			_, err := os.Stdout.Write(data)
			return err
		}
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		if err := storage.WriteAtomic(out, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Printf("%s Exported to %s\n", ui.RenderPass("✓"), out)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "data",
	Short:   "Merge an export file into the current data",
	Long: `Merge an export file into the current data. Records present on both sides
are kept once; templates and products with the same id but different
content abort the import without changing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// #nosec G304 - path chosen by the user
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		ok, err := confirm("Import "+filepath.Base(args[0])+"?", "The file is merged into your current data.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled")
			return nil
		}

		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		res := c.Import(ctx, data)
		if !res.Success {
			return service.NewError(service.ErrInvalid, res.Message)
		}
		fmt.Printf("%s %s\n", ui.RenderPass("✓"), res.Message)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:     "restore",
	GroupID: "data",
	Short:   "Swap the current data with the previous save",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := confirm("Restore the previous save?", "The current data becomes the backup.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled")
			return nil
		}

		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		doc, err := c.Restore(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s Restored. Points: %s\n", ui.RenderPass("✓"),
			ui.RenderPoints(ledger.FormatNumber(doc.UserData.Points)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", `output file ("-" for stdout)`)

	rootCmd.AddCommand(exportCmd, importCmd, restoreCmd)
}

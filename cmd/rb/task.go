package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studyreward/rewardbook/internal/api"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/service"
	"github.com/studyreward/rewardbook/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	GroupID: "catalog",
	Short:   "Manage task templates",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List task templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		templates, err := c.ListTemplates(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(templates))
		for _, t := range templates {
			kind := "custom"
			if t.IsPreset {
				kind = "preset"
			}
			rows = append(rows, []string{t.ID, t.Name, t.Description, kind})
		}
		fmt.Println(ui.Table([]string{"ID", "Name", "Description", "Kind"}, rows))
		return nil
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a task template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetString("description")
		if desc == "" {
			desc = args[0]
		}

		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		t, err := c.CreateTemplate(ctx, service.CreateTemplateRequest{Name: args[0], Description: desc})
		if err != nil {
			return err
		}
		fmt.Printf("%s Added task %s (%s)\n", ui.RenderPass("✓"), t.Name, ui.RenderMuted(t.ID))
		return nil
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <id|name>",
	Short: "Rename or redescribe a custom task template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req service.UpdateTemplateRequest
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			req.Name = &name
		}
		if cmd.Flags().Changed("description") {
			desc, _ := cmd.Flags().GetString("description")
			req.Description = &desc
		}
		if req.Name == nil && req.Description == nil {
			return errors.New("nothing to change (use --name or --description)")
		}

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
		updated, err := c.UpdateTemplate(ctx, t.ID, req)
		if err != nil {
			return err
		}
		fmt.Printf("%s Updated task %s\n", ui.RenderPass("✓"), updated.Name)
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id|name>",
	Short: "Delete a custom task template without history",
	Args:  cobra.ExactArgs(1),
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
		if err := c.DeleteTemplate(ctx, t.ID); err != nil {
			return err
		}
		fmt.Printf("%s Deleted task %s\n", ui.RenderPass("✓"), t.Name)
		return nil
	},
}

// resolveTemplate finds a template by id, then by name.
func resolveTemplate(ctx context.Context, c api.Client, ref string) (schema.TaskTemplate, error) {
	templates, err := c.ListTemplates(ctx)
	if err != nil {
		return schema.TaskTemplate{}, err
	}
	for _, t := range templates {
		if t.ID == ref {
			return t, nil
		}
	}
	for _, t := range templates {
		if strings.EqualFold(t.Name, ref) {
			return t, nil
		}
	}
	return schema.TaskTemplate{}, service.NewError(service.ErrNotFound, fmt.Sprintf("task %q not found", ref))
}

func init() {
	taskAddCmd.Flags().StringP("description", "d", "", "description (default: the name)")
	taskEditCmd.Flags().String("name", "", "new name")
	taskEditCmd.Flags().StringP("description", "d", "", "new description")

	taskCmd.AddCommand(taskListCmd, taskAddCmd, taskEditCmd, taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studyreward/rewardbook/internal/api"
	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/service"
	"github.com/studyreward/rewardbook/internal/ui"
)

var productCmd = &cobra.Command{
	Use:     "product",
	Aliases: []string{"shop"},
	GroupID: "catalog",
	Short:   "Manage the reward shop",
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products and prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		products, err := c.ListProducts(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(products))
		for _, p := range products {
			rows = append(rows, []string{
				p.ID,
				p.Name,
				ledger.FormatNumber(p.Price),
				ledger.FormatNumber(p.MinQuantity) + p.Unit,
				p.Description,
			})
		}
		fmt.Println(ui.Table([]string{"ID", "Name", "Price", "Per", "Description"}, rows))
		return nil
	},
}

var productAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, _ := cmd.Flags().GetFloat64("price")
		minQty, _ := cmd.Flags().GetFloat64("min-quantity")
		unit, _ := cmd.Flags().GetString("unit")
		desc, _ := cmd.Flags().GetString("description")

		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		p, err := c.CreateProduct(ctx, service.CreateProductRequest{
			Name:        args[0],
			Description: desc,
			Price:       price,
			MinQuantity: minQty,
			Unit:        unit,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Added product %s at %s points per %s%s\n",
			ui.RenderPass("✓"), p.Name, ledger.FormatNumber(p.Price), ledger.FormatNumber(p.MinQuantity), p.Unit)
		return nil
	},
}

var productEditCmd = &cobra.Command{
	Use:   "edit <id|name>",
	Short: "Change a custom product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req service.UpdateProductRequest
		flags := cmd.Flags()
		if flags.Changed("name") {
			s, _ := flags.GetString("name")
			req.Name = &s
		}
		if flags.Changed("description") {
			s, _ := flags.GetString("description")
			req.Description = &s
		}
		if flags.Changed("price") {
			f, _ := flags.GetFloat64("price")
			req.Price = &f
		}
		if flags.Changed("min-quantity") {
			f, _ := flags.GetFloat64("min-quantity")
			req.MinQuantity = &f
		}
		if flags.Changed("unit") {
			s, _ := flags.GetString("unit")
			req.Unit = &s
		}

		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		p, err := resolveProduct(ctx, c, args[0])
		if err != nil {
			return err
		}
		updated, err := c.UpdateProduct(ctx, p.ID, req)
		if err != nil {
			return err
		}
		fmt.Printf("%s Updated product %s\n", ui.RenderPass("✓"), updated.Name)
		return nil
	},
}

var productRmCmd = &cobra.Command{
	Use:   "rm <id|name>",
	Short: "Delete a custom product that was never bought",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		p, err := resolveProduct(ctx, c, args[0])
		if err != nil {
			return err
		}
		if err := c.DeleteProduct(ctx, p.ID); err != nil {
			return err
		}
		fmt.Printf("%s Deleted product %s\n", ui.RenderPass("✓"), p.Name)
		return nil
	},
}

var exchangeCmd = &cobra.Command{
	Use:     "exchange <product>",
	Aliases: []string{"buy"},
	GroupID: "track",
	Short:   "Spend points on a product",
	Long: `Spend points on a product. --qty counts purchasable units: buying 3 units
of gold (0.01g each) gets 0.03g.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, _ := cmd.Flags().GetInt("qty")

		c, done, err := client()
		if err != nil {
			return err
		}
		defer done()
		ctx, cancel := cmdContext()
		defer cancel()

		p, err := resolveProduct(ctx, c, args[0])
		if err != nil {
			return err
		}
		res, err := c.Exchange(ctx, service.ExchangeRequest{ProductID: p.ID, Quantity: qty})
		if err != nil {
			return err
		}
		fmt.Printf("%s 兑换%s: %s%s for %s points\n", ui.RenderPass("✓"),
			res.Product.Name, ledger.FormatNumber(res.Quantity), res.Product.Unit, ledger.FormatNumber(res.PointsSpent))
		fmt.Printf("   Remaining: %s\n", ui.RenderPoints(ledger.FormatNumber(res.RemainingPoints)))
		return nil
	},
}

// resolveProduct finds a product by id, then by name.
func resolveProduct(ctx context.Context, c api.Client, ref string) (schema.Product, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return schema.Product{}, err
	}
	for _, p := range products {
		if p.ID == ref {
			return p, nil
		}
	}
	for _, p := range products {
		if strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return schema.Product{}, service.NewError(service.ErrNotFound, fmt.Sprintf("product %q not found", ref))
}

func init() {
	productAddCmd.Flags().Float64P("price", "p", 0, "points per purchasable unit")
	productAddCmd.Flags().Float64("min-quantity", 1, "size of one purchasable unit")
	productAddCmd.Flags().StringP("unit", "u", "个", "unit label")
	productAddCmd.Flags().StringP("description", "d", "", "description")
	_ = productAddCmd.MarkFlagRequired("price")

	productEditCmd.Flags().String("name", "", "new name")
	productEditCmd.Flags().StringP("description", "d", "", "new description")
	productEditCmd.Flags().Float64P("price", "p", 0, "new price")
	productEditCmd.Flags().Float64("min-quantity", 0, "new unit size")
	productEditCmd.Flags().StringP("unit", "u", "", "new unit label")

	exchangeCmd.Flags().IntP("qty", "n", 1, "number of purchasable units")

	productCmd.AddCommand(productListCmd, productAddCmd, productEditCmd, productRmCmd)
	rootCmd.AddCommand(productCmd, exchangeCmd)
}

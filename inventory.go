package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	appInventory "github.com/Zhima-Mochi/travelshop/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/travelshop/internal/domain/inventory"

	"github.com/spf13/cobra"
)

func inventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inspect or set stock for an inventory id",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Print the stock record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdjuster(cmd, func(adj *appInventory.Adjuster) (*dominv.Record, error) {
				return adj.Get(cmd.Context(), args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <id> <stock>",
		Short: "Replace the stock count",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stock, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("stock must be an integer: %w", err)
			}
			return withAdjuster(cmd, func(adj *appInventory.Adjuster) (*dominv.Record, error) {
				return adj.Set(cmd.Context(), args[0], stock)
			})
		},
	})
	return cmd
}

func withAdjuster(cmd *cobra.Command, run func(*appInventory.Adjuster) (*dominv.Record, error)) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.shutdown(cmd.Context())
	if err := requireMongo(a); err != nil {
		return err
	}

	rec, err := run(appInventory.NewAdjuster(a.stock, nil, a.tel))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"id": rec.ID, "stock": rec.Stock, "updatedAt": rec.UpdatedAt})
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xiebiao/scholarium/internal/app"
)

var (
	grantItem      uint
	grantAccount   uint
	revertPurchase uint
)

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "为账户赠送商品（免费购买并立即执行）",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime, l *slog.Logger) error {
			p, err := rt.Ledger.GrantFree(ctx, grantItem, grantAccount)
			if err != nil {
				return err
			}
			l.Info("赠送完成", "purchase_id", p.ID, "item_id", grantItem, "account_id", grantAccount)
			fmt.Fprintf(cmd.OutOrStdout(), "purchase %d\n", p.ID)
			return nil
		})
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "撤销已执行的购买（退款并恢复库存）",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime, l *slog.Logger) error {
			if err := rt.Ledger.Revert(ctx, revertPurchase); err != nil {
				return err
			}
			l.Info("购买已撤销", "purchase_id", revertPurchase)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(grantCmd, revertCmd)

	grantCmd.Flags().UintVar(&grantItem, "item", 0, "商品ID")
	grantCmd.Flags().UintVar(&grantAccount, "account", 0, "账户ID")
	_ = grantCmd.MarkFlagRequired("item")
	_ = grantCmd.MarkFlagRequired("account")

	revertCmd.Flags().UintVar(&revertPurchase, "purchase", 0, "购买记录ID")
	_ = revertCmd.MarkFlagRequired("purchase")
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xiebiao/scholarium/internal/app"
	applending "github.com/xiebiao/scholarium/internal/application/lending"
)

var (
	lendingEntry   string
	lendingCopies  int
	lendingPrice   int
	lendingID      uint
	lendingAccount uint
	lendingAll     bool
)

var lendingCmd = &cobra.Command{
	Use:   "lending",
	Short: "出借管理",
}

var lendingEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "为条目开放出借或调整副本数",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime, l *slog.Logger) error {
			var price *int
			if cmd.Flags().Changed("price") {
				price = &lendingPrice
			}
			item, err := rt.Lendings.Enable(ctx, lendingEntry, lendingCopies, price)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "item %d: %d/%d available\n",
				item.ID, *item.Available(), *item.Stock)
			return nil
		})
	},
}

// lendingMark 按ID登记出借状态的子命令
func lendingMark(use, short string, mark func(*applending.UseCase, context.Context, uint) error) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(ctx context.Context, rt *app.Runtime, _ *slog.Logger) error {
				return mark(rt.Lendings, ctx, lendingID)
			})
		},
	}
	c.Flags().UintVar(&lendingID, "id", 0, "出借ID")
	_ = c.MarkFlagRequired("id")
	return c
}

var lendingListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出账户的出借",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime, _ *slog.Logger) error {
			views, err := rt.Lendings.List(ctx, lendingAccount, !lendingAll)
			if err != nil {
				return err
			}
			printLendings(cmd.OutOrStdout(), views)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(lendingCmd)
	lendingCmd.AddCommand(
		lendingEnableCmd,
		lendingListCmd,
		lendingMark("ship", "登记寄出", (*applending.UseCase).Ship),
		lendingMark("return", "登记归还并处理到货申请", (*applending.UseCase).Return),
		lendingMark("charge", "登记收费", (*applending.UseCase).Charge),
	)

	lendingEnableCmd.Flags().StringVar(&lendingEntry, "entry", "", "条目外部键")
	lendingEnableCmd.Flags().IntVar(&lendingCopies, "copies", 1, "馆藏副本数")
	lendingEnableCmd.Flags().IntVar(&lendingPrice, "price", 0, "出借价格，不指定时保留原价")
	_ = lendingEnableCmd.MarkFlagRequired("entry")

	lendingListCmd.Flags().UintVar(&lendingAccount, "account", 0, "账户ID")
	lendingListCmd.Flags().BoolVar(&lendingAll, "all", false, "包含已归还的出借")
	_ = lendingListCmd.MarkFlagRequired("account")
}

// printLendings 每行一条：ID、标题与状态
func printLendings(w io.Writer, views []applending.View) {
	for _, v := range views {
		state := "reserved"
		switch {
		case v.Returned != nil:
			state = "returned"
		case v.Shipped != nil:
			state = "shipped"
		}
		if v.Charged != nil {
			state += ",charged"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", v.ID, v.Title, state)
	}
}

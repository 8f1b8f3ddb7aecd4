package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiebiao/scholarium/internal/app"
	"github.com/xiebiao/scholarium/internal/domain/catalog"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "打印本地集合树",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime, _ *slog.Logger) error {
			collections, err := rt.Catalog.ListCollections(ctx)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), collections)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

// printTree 按父子关系缩进输出，同级按标题排序
// 父集合不在列表中的集合作为根输出
func printTree(w io.Writer, collections []*catalog.Collection) {
	known := make(map[uint]struct{}, len(collections))
	for _, c := range collections {
		known[c.ID] = struct{}{}
	}

	children := make(map[uint][]*catalog.Collection)
	var roots []*catalog.Collection
	for _, c := range collections {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if _, ok := known[*c.ParentID]; !ok {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var walk func(list []*catalog.Collection, depth int)
	walk = func(list []*catalog.Collection, depth int) {
		sort.Slice(list, func(i, j int) bool { return list[i].Title < list[j].Title })
		for _, c := range list {
			fmt.Fprintf(w, "%s%s (%s)\n", strings.Repeat("  ", depth), c.Title, c.ExternalKey)
			walk(children[c.ID], depth+1)
		}
	}
	walk(roots, 0)
}

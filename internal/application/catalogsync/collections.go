package catalogsync

import (
	"context"
	"errors"
	"sort"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
)

// SyncCollections 同步集合树
// 私有集合（名称以_开头）及其子孙不会创建；远程已不存在的本地集合被删除，
// 仍有条目或子集合的集合保留并报告
func (e *Engine) SyncCollections(ctx context.Context) (*Report, error) {
	return e.guarded(ctx, collectionsScope, e.syncCollections)
}

func (e *Engine) syncCollections(ctx context.Context, r *Report) error {
	remote, err := e.client.ListCollections(ctx)
	if err != nil {
		return err
	}

	local, err := e.catalog.ListCollections(ctx)
	if err != nil {
		return err
	}
	localByKey := make(map[string]*catalog.Collection, len(local))
	for _, c := range local {
		localByKey[c.ExternalKey] = c
	}

	children := make(map[string][]catalog.RemoteCollection)
	var roots []catalog.RemoteCollection
	for _, c := range remote {
		if c.ParentKey == "" {
			roots = append(roots, c)
		} else {
			children[c.ParentKey] = append(children[c.ParentKey], c)
		}
	}

	seen := make(map[string]struct{}, len(remote))

	// 深度优先：父集合落库后才创建子集合
	var visit func(c catalog.RemoteCollection, parentID *uint) error
	visit = func(c catalog.RemoteCollection, parentID *uint) error {
		if catalog.IsPrivateCollection(c.Name) {
			r.Collections.Skipped++
			e.logger.DebugContext(ctx, "跳过私有集合", "key", c.Key, "name", c.Name)
			return nil
		}

		col := &catalog.Collection{ExternalKey: c.Key, Title: c.Name, ParentID: parentID}
		changed, err := e.catalog.SaveCollection(ctx, col)
		if err != nil {
			return err
		}
		seen[c.Key] = struct{}{}

		switch _, existed := localByKey[c.Key]; {
		case !existed:
			r.Collections.Created++
		case changed:
			r.Collections.Updated++
		default:
			r.Collections.Unchanged++
		}

		id := col.ID
		for _, child := range children[c.Key] {
			if err := visit(child, &id); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := visit(root, nil); err != nil {
			return err
		}
	}

	return e.deleteStaleCollections(ctx, r, local, seen)
}

// deleteStaleCollections 先删子集合再删父集合
func (e *Engine) deleteStaleCollections(ctx context.Context, r *Report, local []*catalog.Collection, seen map[string]struct{}) error {
	byID := make(map[uint]*catalog.Collection, len(local))
	for _, c := range local {
		byID[c.ID] = c
	}
	depth := func(c *catalog.Collection) int {
		d := 0
		for p := c.ParentID; p != nil && d <= len(local); d++ {
			parent, ok := byID[*p]
			if !ok {
				break
			}
			p = parent.ParentID
		}
		return d
	}

	var stale []*catalog.Collection
	for _, c := range local {
		if _, ok := seen[c.ExternalKey]; !ok {
			stale = append(stale, c)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool { return depth(stale[i]) > depth(stale[j]) })

	for _, c := range stale {
		err := e.catalog.DeleteCollection(ctx, c.ID)
		switch {
		case err == nil:
			r.Collections.Deleted++
		case errors.Is(err, catalog.ErrCollectionInUse):
			e.violation(ctx, r, "collection", c.ExternalKey, "集合仍有条目或子集合")
		case errors.Is(err, catalog.ErrCollectionNotFound):
		default:
			return err
		}
	}
	return nil
}

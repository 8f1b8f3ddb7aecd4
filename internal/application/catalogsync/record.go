package catalogsync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
)

// 远程日期字段是自由文本，按顺序尝试
var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	"January 2006",
	"2 January 2006",
	"January 2, 2006",
	"02.01.2006",
	"01/02/2006",
}

// parseDate 无法解析时返回nil，记录本身保留
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// stockFor 手工amount优先；其次排除标签为0、馆藏标签为1；无标签为0
func stockFor(rec catalog.RemoteRecord, o catalog.Overrides, owned, excluded []string) int {
	if o.Amount != nil {
		return *o.Amount
	}
	for _, tag := range excluded {
		if rec.HasTag(tag) {
			return 0
		}
	}
	for _, tag := range owned {
		if rec.HasTag(tag) {
			return 1
		}
	}
	return 0
}

// authorNames 去掉空名和重复
func authorNames(creators []catalog.RemoteCreator) []string {
	seen := make(map[string]struct{}, len(creators))
	names := make([]string, 0, len(creators))
	for _, c := range creators {
		name := c.FullName()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// fingerprint 远程记录的xxhash，未变化时跳过条目更新
func fingerprint(rec catalog.RemoteRecord) string {
	b, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

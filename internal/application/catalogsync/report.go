package catalogsync

import (
	"fmt"
	"time"

	"github.com/xiebiao/scholarium/pkg/metrics"
)

// Counts 一类记录的处理结果
type Counts struct {
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
	Skipped   int
}

func (c Counts) String() string {
	return fmt.Sprintf("created=%d updated=%d unchanged=%d deleted=%d skipped=%d",
		c.Created, c.Updated, c.Unchanged, c.Deleted, c.Skipped)
}

// Violation 因已完成购买或仍有引用而拒绝的删除
type Violation struct {
	Kind   string // collection | entry | attachment
	Key    string
	Reason string
}

// Report 一次同步的结果
type Report struct {
	Scope       string
	Collections Counts
	Entries     Counts
	Attachments Counts
	Violations  []Violation
	StartedAt   time.Time
	Duration    time.Duration
}

func newReport(scope string, now time.Time) *Report {
	return &Report{Scope: scope, StartedAt: now}
}

// HasViolations 是否有被拒绝的删除
func (r *Report) HasViolations() bool {
	return len(r.Violations) > 0
}

// publish 把计数写入指标
func (r *Report) publish() {
	for kind, c := range map[string]Counts{
		"collection": r.Collections,
		"entry":      r.Entries,
		"attachment": r.Attachments,
	} {
		for action, n := range map[string]int{
			"created":   c.Created,
			"updated":   c.Updated,
			"unchanged": c.Unchanged,
			"deleted":   c.Deleted,
			"skipped":   c.Skipped,
		} {
			metrics.AddCounterVec(metrics.SyncRecordsTotal, map[string]string{"kind": kind, "action": action}, n)
		}
	}
}

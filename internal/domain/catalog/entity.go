package catalog

import (
	"strings"
	"time"
)

// Collection 远程书目服务的集合节点（树形结构）
// 不变量：子节点只在父节点落库后创建，因此不会出现环
type Collection struct {
	ID          uint
	ExternalKey string
	Title       string
	ParentID    *uint
}

// Entry 书目条目（本地镜像）
// 设计说明:
// 1. ExternalKey是同步时的唯一连接键
// 2. StockAmount为nil表示不限库存
// 3. ProductID指向拥有库存商品的Product（商品类型为book）
// 4. Fingerprint是远程记录的哈希，未变化时跳过更新
type Entry struct {
	ID            uint
	ExternalKey   string
	Title         string
	PublishedDate *time.Time
	Authors       []Author
	StockAmount   *int
	BasePrice     *int
	DigitalPrice  *int
	Printable     bool
	Fingerprint   string
	ProductID     uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AuthorNames 返回作者名列表
func (e *Entry) AuthorNames() []string {
	names := make([]string, len(e.Authors))
	for i, a := range e.Authors {
		names[i] = a.Name
	}
	return names
}

// Author 作者，没有条目引用时被回收
type Author struct {
	ID   uint
	Name string
}

// Format 附件格式
type Format string

const (
	FormatFile Format = "file"
	FormatNote Format = "note"
)

// Attachment 条目附件，每个附件派生一个可下载商品
type Attachment struct {
	ID          uint
	ExternalKey string
	Format      Format
	MediaType   string // pdf | epub | mobi | note ...
	EntryID     uint
}

// IsPrivateCollection 名称以下划线开头的集合不同步
func IsPrivateCollection(name string) bool {
	return strings.HasPrefix(name, "_")
}

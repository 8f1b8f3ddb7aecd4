package catalog

import (
	"path"
	"strings"
)

// RemoteCollection 远程集合
type RemoteCollection struct {
	Key       string
	Name      string
	ParentKey string // 根集合为空
}

// RemoteCreator 远程条目的作者
// 个人作者使用FirstName/LastName，机构作者只有Name
type RemoteCreator struct {
	FirstName string
	LastName  string
	Name      string
}

// FullName 名+姓，单字段作者直接返回Name
func (c RemoteCreator) FullName() string {
	if c.Name != "" {
		return strings.TrimSpace(c.Name)
	}
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// 远程条目类型
const (
	RecordTypeAttachment = "attachment"
	RecordTypeNote       = "note"
)

// RemoteRecord 远程集合中的一条记录（作品、附件或笔记）
type RemoteRecord struct {
	Key        string
	Type       string
	Title      string
	ShortTitle string
	Date       string
	Tags       []string
	Creators   []RemoteCreator
	Extra      string
	ParentKey  string
	Filename   string
	Note       string
}

// IsChild 附件和笔记通过ParentKey挂在作品下
func (r RemoteRecord) IsChild() bool {
	return r.ParentKey != ""
}

// IsParent 顶层作品
func (r RemoteRecord) IsParent() bool {
	return r.ParentKey == "" && r.Type != RecordTypeAttachment && r.Type != RecordTypeNote
}

// HasTag 标签比较不区分大小写
func (r RemoteRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// DisplayTitle 标题为空时退回短标题
func (r RemoteRecord) DisplayTitle() string {
	if t := strings.TrimSpace(r.Title); t != "" {
		return t
	}
	return strings.TrimSpace(r.ShortTitle)
}

// MediaType 附件格式：笔记返回note，文件取扩展名（小写），无法判断时为空
func (r RemoteRecord) MediaType() string {
	if r.Type == RecordTypeNote || (r.Note != "" && r.Filename == "") {
		return string(FormatNote)
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(r.Filename)), ".")
	return ext
}

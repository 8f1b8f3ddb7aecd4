package zotero

import (
	"encoding/json"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
)

// Zotero Web API v3 响应结构（只保留同步用到的字段）

type collectionJSON struct {
	Key  string `json:"key"`
	Data struct {
		Key              string    `json:"key"`
		Name             string    `json:"name"`
		ParentCollection parentKey `json:"parentCollection"`
	} `json:"data"`
}

type itemJSON struct {
	Key  string   `json:"key"`
	Data itemData `json:"data"`
}

type itemData struct {
	Key        string        `json:"key"`
	ItemType   string        `json:"itemType"`
	Title      string        `json:"title"`
	ShortTitle string        `json:"shortTitle"`
	Date       string        `json:"date"`
	Extra      string        `json:"extra"`
	ParentItem string        `json:"parentItem"`
	Filename   string        `json:"filename"`
	Note       string        `json:"note"`
	Tags       []tagJSON     `json:"tags"`
	Creators   []creatorJSON `json:"creators"`
}

type tagJSON struct {
	Tag string `json:"tag"`
}

type creatorJSON struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Name        string `json:"name"`
}

// parentKey 根集合的parentCollection为false，子集合为字符串
type parentKey string

func (p *parentKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = parentKey(s)
		return nil
	}
	*p = ""
	return nil
}

func (c collectionJSON) toRemote() catalog.RemoteCollection {
	key := c.Data.Key
	if key == "" {
		key = c.Key
	}
	return catalog.RemoteCollection{
		Key:       key,
		Name:      c.Data.Name,
		ParentKey: string(c.Data.ParentCollection),
	}
}

func (i itemJSON) toRemote() catalog.RemoteRecord {
	d := i.Data
	key := d.Key
	if key == "" {
		key = i.Key
	}

	tags := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		tags = append(tags, t.Tag)
	}
	creators := make([]catalog.RemoteCreator, 0, len(d.Creators))
	for _, c := range d.Creators {
		creators = append(creators, catalog.RemoteCreator{
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Name:      c.Name,
		})
	}

	return catalog.RemoteRecord{
		Key:        key,
		Type:       d.ItemType,
		Title:      d.Title,
		ShortTitle: d.ShortTitle,
		Date:       d.Date,
		Tags:       tags,
		Creators:   creators,
		Extra:      d.Extra,
		ParentKey:  d.ParentItem,
		Filename:   d.Filename,
		Note:       d.Note,
	}
}

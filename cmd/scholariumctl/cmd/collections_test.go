package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	applending "github.com/xiebiao/scholarium/internal/application/lending"
	"github.com/xiebiao/scholarium/internal/domain/catalog"
)

func uintPtr(v uint) *uint { return &v }

func TestPrintTree(t *testing.T) {
	t.Run("按层级缩进并按标题排序", func(t *testing.T) {
		var buf bytes.Buffer
		printTree(&buf, []*catalog.Collection{
			{ID: 1, ExternalKey: "ROOT", Title: "Bibliothek"},
			{ID: 2, ExternalKey: "B", Title: "Wirtschaft", ParentID: uintPtr(1)},
			{ID: 3, ExternalKey: "A", Title: "Philosophie", ParentID: uintPtr(1)},
			{ID: 4, ExternalKey: "C", Title: "Geld", ParentID: uintPtr(2)},
		})

		assert.Equal(t, "Bibliothek (ROOT)\n"+
			"  Philosophie (A)\n"+
			"  Wirtschaft (B)\n"+
			"    Geld (C)\n", buf.String())
	})

	t.Run("父集合缺失时作为根", func(t *testing.T) {
		var buf bytes.Buffer
		printTree(&buf, []*catalog.Collection{
			{ID: 5, ExternalKey: "X", Title: "Verwaist", ParentID: uintPtr(99)},
		})
		assert.Equal(t, "Verwaist (X)\n", buf.String())
	})
}

func TestPrintLendings(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	printLendings(&buf, []applending.View{
		{ID: 1, Title: "Capital"},
		{ID: 2, Title: "Human Action", Shipped: &now},
		{ID: 3, Title: "Geld", Shipped: &now, Returned: &now, Charged: &now},
	})

	assert.Equal(t, "1\tCapital\treserved\n"+
		"2\tHuman Action\tshipped\n"+
		"3\tGeld\treturned,charged\n", buf.String())
}

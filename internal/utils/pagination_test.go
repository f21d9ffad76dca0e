// internal/utils/pagination_test.go
package utils

import (
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gadget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func newGadgetDB(t *testing.T, rows int) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&gadget{}))
	for i := 1; i <= rows; i++ {
		require.NoError(t, db.Create(&gadget{Name: fmt.Sprintf("gadget-%d", i)}).Error)
	}
	return db
}

func serializeGadget(g *gadget) (interface{}, error) { return g.Name, nil }

func TestPaginateFirstPage(t *testing.T) {
	db := newGadgetDB(t, 23)
	link := CollectionLink("/v1/gadgets", 10, nil)

	col, err := Paginate(db.Model(&gadget{}).Order("id"), 1, 10, serializeGadget, link)
	require.NoError(t, err)

	assert.Len(t, col.Items, 10)
	assert.Equal(t, "gadget-1", col.Items[0])
	assert.Equal(t, int64(23), col.Meta.TotalItems)
	// Integer division: the partial third page is not counted.
	assert.Equal(t, 2, col.Meta.TotalPages)
	require.NotNil(t, col.Links.Next)
	assert.Nil(t, col.Links.Prev)
}

func TestPaginateLastPage(t *testing.T) {
	db := newGadgetDB(t, 23)
	link := CollectionLink("/v1/gadgets", 10, nil)

	col, err := Paginate(db.Model(&gadget{}).Order("id"), 3, 10, serializeGadget, link)
	require.NoError(t, err)

	assert.Len(t, col.Items, 3)
	assert.Equal(t, "gadget-21", col.Items[0])
	assert.Nil(t, col.Links.Next)
	require.NotNil(t, col.Links.Prev)
}

func TestPaginateMiddlePageHasBothLinks(t *testing.T) {
	db := newGadgetDB(t, 23)
	link := CollectionLink("/v1/gadgets", 10, nil)

	col, err := Paginate(db.Model(&gadget{}).Order("id"), 2, 10, serializeGadget, link)
	require.NoError(t, err)

	assert.Len(t, col.Items, 10)
	require.NotNil(t, col.Links.Next)
	require.NotNil(t, col.Links.Prev)
}

func TestPaginateExactMultiple(t *testing.T) {
	db := newGadgetDB(t, 20)
	link := CollectionLink("/v1/gadgets", 10, nil)

	col, err := Paginate(db.Model(&gadget{}).Order("id"), 2, 10, serializeGadget, link)
	require.NoError(t, err)

	assert.Equal(t, 2, col.Meta.TotalPages)
	assert.Nil(t, col.Links.Next, "no next page when page*per_page equals the total")
}

func TestPaginateBeyondLastPageIsEmpty(t *testing.T) {
	db := newGadgetDB(t, 5)
	link := CollectionLink("/v1/gadgets", 10, nil)

	col, err := Paginate(db.Model(&gadget{}).Order("id"), 4, 10, serializeGadget, link)
	require.NoError(t, err)

	assert.Empty(t, col.Items)
	assert.Nil(t, col.Links.Next)
}

func TestCollectionLinkKeepsExtraParams(t *testing.T) {
	link := CollectionLink("/v1/search", 10, url.Values{"q": {"lamp"}})

	u, err := url.Parse(link(2))
	require.NoError(t, err)
	assert.Equal(t, "/v1/search", u.Path)
	assert.Equal(t, "lamp", u.Query().Get("q"))
	assert.Equal(t, "2", u.Query().Get("page"))
	assert.Equal(t, "10", u.Query().Get("per_page"))
}

func TestGetPageParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		query   string
		page    int
		perPage int
	}{
		{"", 1, 10},
		{"page=3&per_page=25", 3, 25},
		{"page=0&per_page=0", 1, 10},
		{"page=-2&per_page=-5", 1, 10},
		{"per_page=500", 1, 100},
		{"page=junk&per_page=junk", 1, 10},
	}

	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/?"+tc.query, nil)

		page, perPage := GetPageParams(c)
		assert.Equal(t, tc.page, page, "query %q", tc.query)
		assert.Equal(t, tc.perPage, perPage, "query %q", tc.query)
	}
}

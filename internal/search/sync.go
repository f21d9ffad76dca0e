// internal/search/sync.go
package search

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/database"
	"github.com/marketloop/marketloop-backend/internal/models"
)

// RegisterTracking installs data-layer callbacks that record every created,
// updated and deleted Searchable row into the changeset of the unit of work
// the statement runs in. Statements outside a tracked unit of work are
// ignored.
func RegisterTracking(db *gorm.DB) error {
	if err := db.Callback().Create().After("gorm:create").Register("search:track_create", trackCreate); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("search:track_update", trackUpdate); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").Register("search:track_delete", trackDelete)
}

func trackCreate(db *gorm.DB) { track(db, func(cs *database.Changeset, s models.Searchable) { cs.Added = append(cs.Added, s) }) }

func trackUpdate(db *gorm.DB) { track(db, func(cs *database.Changeset, s models.Searchable) { cs.Updated = append(cs.Updated, s) }) }

func trackDelete(db *gorm.DB) { track(db, func(cs *database.Changeset, s models.Searchable) { cs.Deleted = append(cs.Deleted, s) }) }

func track(db *gorm.DB, record func(*database.Changeset, models.Searchable)) {
	if db.Error != nil || db.Statement == nil {
		return
	}
	cs := database.ChangesFrom(db.Statement.Context)
	if cs == nil {
		return
	}
	if s, ok := db.Statement.Dest.(models.Searchable); ok {
		record(cs, s)
		return
	}
	if s, ok := db.Statement.Model.(models.Searchable); ok {
		record(cs, s)
	}
}

// Syncer mirrors committed searchable changes into the external index. Sync
// is best-effort and eventually consistent: the index going away never fails
// a write, and one bad document never aborts its siblings.
type Syncer struct {
	index Index
	log   *logrus.Logger
}

func NewSyncer(index Index, log *logrus.Logger) *Syncer {
	return &Syncer{index: index, log: log}
}

// Begin opens a unit of work wired for index synchronization.
func (s *Syncer) Begin(ctx context.Context, db *gorm.DB) (*database.Txn, error) {
	tx, err := database.Begin(ctx, db)
	if err != nil {
		return nil, err
	}
	s.Bind(ctx, tx)
	return tx, nil
}

// Bind attaches the commit-lifecycle hooks to tx. Before commit the pending
// changeset is snapshotted (or dropped with a log line when the index is
// unreachable); after commit each snapshotted document is upserted or
// deleted independently.
func (s *Syncer) Bind(ctx context.Context, tx *database.Txn) {
	var snapshot database.Changeset

	tx.OnBeforeCommit(func(t *database.Txn) error {
		cs := t.Changes()
		if cs.Empty() {
			return nil
		}
		if s.index == nil || !s.index.Available() {
			s.log.Warn("Search index unreachable, skipping sync for this commit")
			cs.Reset()
			return nil
		}
		snapshot = *cs
		cs.Reset()
		return nil
	})

	tx.OnAfterCommit(func() {
		for _, obj := range snapshot.Added {
			s.upsert(ctx, obj)
		}
		for _, obj := range snapshot.Updated {
			s.upsert(ctx, obj)
		}
		for _, obj := range snapshot.Deleted {
			if err := s.index.Delete(ctx, obj.SearchIndex(), obj.SearchID()); err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"index": obj.SearchIndex(),
					"id":    obj.SearchID(),
				}).Error("Failed to remove document from search index")
			}
		}
	})
}

func (s *Syncer) upsert(ctx context.Context, obj models.Searchable) {
	if err := s.index.Upsert(ctx, obj.SearchIndex(), obj.SearchID(), obj.SearchFields()); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"index": obj.SearchIndex(),
			"id":    obj.SearchID(),
		}).Error("Failed to add document to search index")
	}
}

// ReindexAll rebuilds the index from scratch by upserting every row of every
// searchable type.
func (s *Syncer) ReindexAll(ctx context.Context, db *gorm.DB) error {
	if s.index == nil {
		return nil
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return err
	}
	for i := range users {
		s.upsert(ctx, &users[i])
	}

	var products []models.Product
	if err := db.Find(&products).Error; err != nil {
		return err
	}
	for i := range products {
		s.upsert(ctx, &products[i])
	}

	s.log.WithFields(logrus.Fields{
		"users":    len(users),
		"products": len(products),
	}).Info("Search reindex completed")
	return nil
}

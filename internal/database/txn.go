// internal/database/txn.go
package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/models"
)

type changesKey struct{}

// Changeset collects the searchable rows created, updated and deleted during
// one unit of work. It is carried in the transaction context so data-layer
// callbacks can record into it.
type Changeset struct {
	Added   []models.Searchable
	Updated []models.Searchable
	Deleted []models.Searchable
}

func (cs *Changeset) Reset() {
	cs.Added = nil
	cs.Updated = nil
	cs.Deleted = nil
}

func (cs *Changeset) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Updated) == 0 && len(cs.Deleted) == 0
}

// ChangesFrom returns the changeset bound to ctx, or nil when the statement
// runs outside a tracked unit of work.
func ChangesFrom(ctx context.Context) *Changeset {
	cs, _ := ctx.Value(changesKey{}).(*Changeset)
	return cs
}

// Txn is one unit of work: a database transaction with before/after-commit
// observation hooks. All row mutations of a request are staged on it and
// become durable only on Commit.
type Txn struct {
	DB *gorm.DB

	changes      *Changeset
	beforeCommit []func(*Txn) error
	afterCommit  []func()
	finished     bool
}

// Begin opens a transaction whose statements record searchable changes.
func Begin(ctx context.Context, db *gorm.DB) (*Txn, error) {
	cs := &Changeset{}
	tx := db.WithContext(context.WithValue(ctx, changesKey{}, cs)).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Txn{DB: tx, changes: cs}, nil
}

func (t *Txn) Changes() *Changeset { return t.changes }

// OnBeforeCommit registers fn to run before the transaction commits. A
// returned error aborts the commit and rolls the transaction back.
func (t *Txn) OnBeforeCommit(fn func(*Txn) error) {
	t.beforeCommit = append(t.beforeCommit, fn)
}

// OnAfterCommit registers fn to run once the commit has succeeded.
func (t *Txn) OnAfterCommit(fn func()) {
	t.afterCommit = append(t.afterCommit, fn)
}

func (t *Txn) Commit() error {
	for _, fn := range t.beforeCommit {
		if err := fn(t); err != nil {
			t.Rollback()
			return err
		}
	}
	if err := t.DB.Commit().Error; err != nil {
		return err
	}
	t.finished = true
	for _, fn := range t.afterCommit {
		fn()
	}
	return nil
}

// Rollback discards the unit of work. Safe to defer alongside Commit.
func (t *Txn) Rollback() {
	if t.finished {
		return
	}
	t.finished = true
	t.DB.Rollback()
}

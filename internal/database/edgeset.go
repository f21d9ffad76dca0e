// internal/database/edgeset.go
package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
)

// EdgeSet describes a directed many-to-many relation stored in a bare join
// table. The same type backs both the follow graph (user->user) and the
// cart (user->product). Add and Remove are idempotent; mutations run on the
// caller's transaction and become durable only when it commits.
type EdgeSet[L ~uint, R ~uint] struct {
	Table    string
	LeftCol  string
	RightCol string
}

func NewEdgeSet[L ~uint, R ~uint](table, leftCol, rightCol string) EdgeSet[L, R] {
	return EdgeSet[L, R]{Table: table, LeftCol: leftCol, RightCol: rightCol}
}

// Has reports whether the (left, right) edge exists.
func (e EdgeSet[L, R]) Has(db *gorm.DB, left L, right R) (bool, error) {
	var n int64
	err := db.Table(e.Table).
		Where(e.LeftCol+" = ? AND "+e.RightCol+" = ?", left, right).
		Count(&n).Error
	if err != nil {
		return false, &apperrors.PersistenceError{Op: "edge lookup on " + e.Table, Err: err}
	}
	return n > 0, nil
}

// Add inserts the edge unless it already exists. A duplicate-key error from
// a concurrent insert is treated the same as "already exists".
func (e EdgeSet[L, R]) Add(db *gorm.DB, left L, right R) error {
	exists, err := e.Has(db, left, right)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = db.Table(e.Table).Create(map[string]interface{}{
		e.LeftCol:  left,
		e.RightCol: right,
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return &apperrors.PersistenceError{Op: "edge insert on " + e.Table, Err: err}
	}
	return nil
}

// Remove deletes the edge; absent edges are a no-op.
func (e EdgeSet[L, R]) Remove(db *gorm.DB, left L, right R) error {
	err := db.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", e.Table, e.LeftCol, e.RightCol),
		left, right,
	).Error
	if err != nil {
		return &apperrors.PersistenceError{Op: "edge delete on " + e.Table, Err: err}
	}
	return nil
}

// CountFrom counts edges originating at left (e.g. how many users a user
// follows, or how many products sit in a cart).
func (e EdgeSet[L, R]) CountFrom(db *gorm.DB, left L) (int64, error) {
	var n int64
	err := db.Table(e.Table).Where(e.LeftCol+" = ?", left).Count(&n).Error
	if err != nil {
		return 0, &apperrors.PersistenceError{Op: "edge count on " + e.Table, Err: err}
	}
	return n, nil
}

// CountTo counts edges landing on right (e.g. followers of a user, or how
// many users added a product).
func (e EdgeSet[L, R]) CountTo(db *gorm.DB, right R) (int64, error) {
	var n int64
	err := db.Table(e.Table).Where(e.RightCol+" = ?", right).Count(&n).Error
	if err != nil {
		return 0, &apperrors.PersistenceError{Op: "edge count on " + e.Table, Err: err}
	}
	return n, nil
}

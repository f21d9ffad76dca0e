// internal/database/txn_test.go
package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/models"
)

func newTxnTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func TestTxnCommitRunsHooksInOrder(t *testing.T) {
	db := newTxnTestDB(t)

	tx, err := Begin(context.Background(), db)
	require.NoError(t, err)

	var calls []string
	tx.OnBeforeCommit(func(*Txn) error {
		calls = append(calls, "before")
		return nil
	})
	tx.OnAfterCommit(func() {
		calls = append(calls, "after")
	})

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, tx.DB.Create(user).Error)
	require.NoError(t, tx.Commit())

	assert.Equal(t, []string{"before", "after"}, calls)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTxnBeforeCommitErrorRollsBack(t *testing.T) {
	db := newTxnTestDB(t)

	tx, err := Begin(context.Background(), db)
	require.NoError(t, err)

	boom := errors.New("boom")
	tx.OnBeforeCommit(func(*Txn) error { return boom })

	afterRan := false
	tx.OnAfterCommit(func() { afterRan = true })

	user := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, tx.DB.Create(user).Error)

	err = tx.Commit()
	assert.ErrorIs(t, err, boom)
	assert.False(t, afterRan)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestTxnRollbackDiscardsWrites(t *testing.T) {
	db := newTxnTestDB(t)

	tx, err := Begin(context.Background(), db)
	require.NoError(t, err)

	user := &models.User{Username: "carol", Email: "carol@example.com", PasswordHash: "x"}
	require.NoError(t, tx.DB.Create(user).Error)
	tx.Rollback()

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestTxnRollbackAfterCommitIsNoop(t *testing.T) {
	db := newTxnTestDB(t)

	tx, err := Begin(context.Background(), db)
	require.NoError(t, err)

	user := &models.User{Username: "dave", Email: "dave@example.com", PasswordHash: "x"}
	require.NoError(t, tx.DB.Create(user).Error)
	require.NoError(t, tx.Commit())
	tx.Rollback()

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestChangesetManualRecording(t *testing.T) {
	db := newTxnTestDB(t)

	tx, err := Begin(context.Background(), db)
	require.NoError(t, err)
	defer tx.Rollback()

	cs := ChangesFrom(tx.DB.Statement.Context)
	require.NotNil(t, cs)
	assert.True(t, cs.Empty())
	assert.Same(t, tx.Changes(), cs)

	user := &models.User{Username: "erin", Email: "erin@example.com", PasswordHash: "x"}
	cs.Added = append(cs.Added, user)
	assert.False(t, cs.Empty())

	cs.Reset()
	assert.True(t, cs.Empty())
}

func TestChangesFromOutsideTxnIsNil(t *testing.T) {
	assert.Nil(t, ChangesFrom(context.Background()))
}

// internal/services/user_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
	"github.com/marketloop/marketloop-backend/internal/models"
)

func TestRegisterRejectsDuplicates(t *testing.T) {
	db, users, _ := newTestServices(t)
	makeTestUser(t, db, users, "alice")

	_, err := users.Register(db, &RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = users.Register(db, &RegisterRequest{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	db, users, _ := newTestServices(t)

	cases := []RegisterRequest{
		// short username, invalid characters, bad email, short password
		{Username: "x", Email: "a@example.com", Password: "secret123"},
		{Username: "spaced name", Email: "a@example.com", Password: "secret1"},
		{Username: "valid_name", Email: "not-an-email", Password: "secret123"},
		{Username: "valid_name", Email: "a@example.com", Password: "shrt"},
	}
	for _, req := range cases {
		_, err := users.Register(db, &req)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "request %+v", req)
	}
}

func TestAuthenticate(t *testing.T) {
	db, users, _ := newTestServices(t)
	makeTestUser(t, db, users, "alice")

	user, err := users.Authenticate(db, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = users.Authenticate(db, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Authenticate(db, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFollowAndUnfollow(t *testing.T) {
	db, users, _ := newTestServices(t)
	alice := makeTestUser(t, db, users, "alice")
	bob := makeTestUser(t, db, users, "bob")

	require.NoError(t, users.Follow(db, alice.ID, bob.ID))
	// Following again is a no-op.
	require.NoError(t, users.Follow(db, alice.ID, bob.ID))

	following, err := users.IsFollowing(db, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	reverse, err := users.IsFollowing(db, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, reverse, "follow edges are directed")

	require.NoError(t, users.Unfollow(db, alice.ID, bob.ID))
	require.NoError(t, users.Unfollow(db, alice.ID, bob.ID))

	following, err = users.IsFollowing(db, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestSelfFollowRejected(t *testing.T) {
	db, users, _ := newTestServices(t)
	alice := makeTestUser(t, db, users, "alice")

	err := users.Follow(db, alice.ID, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProfileCounts(t *testing.T) {
	db, users, products := newTestServices(t)
	alice := makeTestUser(t, db, users, "alice")
	bob := makeTestUser(t, db, users, "bob")

	require.NoError(t, users.Follow(db, bob.ID, alice.ID))
	product := makeTestProduct(t, db, products, alice.ID, "lamp")
	require.NoError(t, products.AddToCart(db, bob.ID, product))

	profile, err := users.Profile(db, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.ProductCount)
	assert.Equal(t, int64(1), profile.FollowersCount)
	assert.Equal(t, int64(0), profile.FollowedCount)
	assert.Equal(t, int64(0), profile.CartCount)

	profile, err = users.Profile(db, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(0), profile.FollowersCount)
	assert.Equal(t, int64(1), profile.FollowedCount)
	assert.Equal(t, int64(1), profile.CartCount)
}

func TestUpdateProfile(t *testing.T) {
	db, users, _ := newTestServices(t)
	alice := makeTestUser(t, db, users, "alice")
	makeTestUser(t, db, users, "bob")

	newName := "alice_v2"
	about := "hello there"
	updated, err := users.UpdateProfile(db, alice.ID, &UpdateUserRequest{
		Username: &newName,
		AboutMe:  &about,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice_v2", updated.Username)
	assert.Equal(t, "hello there", updated.AboutMe)

	// Taking another user's name is rejected.
	taken := "bob"
	_, err = users.UpdateProfile(db, alice.ID, &UpdateUserRequest{Username: &taken})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestChangePassword(t *testing.T) {
	db, users, _ := newTestServices(t)
	alice := makeTestUser(t, db, users, "alice")

	err := users.ChangePassword(db, alice.ID, &ChangePasswordRequest{
		CurrentPassword: "wrong",
		Password:        "newsecret",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, users.ChangePassword(db, alice.ID, &ChangePasswordRequest{
		CurrentPassword: "secret123",
		Password:        "newsecret",
	}))

	_, err = users.Authenticate(db, "alice@example.com", "newsecret")
	require.NoError(t, err)
}

func TestDeleteAccountRemovesEverything(t *testing.T) {
	db, users, products := newTestServices(t)
	alice := makeTestUser(t, db, users, "alice")
	bob := makeTestUser(t, db, users, "bob")

	product := makeTestProduct(t, db, products, alice.ID, "lamp")
	require.NoError(t, products.AddToCart(db, bob.ID, product))
	require.NoError(t, users.Follow(db, bob.ID, alice.ID))

	require.NoError(t, users.DeleteAccount(db, alice.ID))

	_, err := users.GetUser(db, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var productCount int64
	require.NoError(t, db.Model(&models.Product{}).Count(&productCount).Error)
	assert.Equal(t, int64(0), productCount)

	cartCount, err := products.InCart(db, bob.ID, product.ID)
	require.NoError(t, err)
	assert.False(t, cartCount)

	followers, err := users.FollowersQuery(db, alice.ID).Rows()
	require.NoError(t, err)
	assert.False(t, followers.Next())
	followers.Close()
}

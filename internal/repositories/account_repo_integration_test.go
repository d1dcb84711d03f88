//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, repo *AccountRepository, username, email string) *models.Account {
	t.Helper()
	account, err := repo.Create(context.Background(), &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$12$hash",
		FirstName:    "Test",
		LastName:     "User",
		PhoneNumber:  "+15555550100",
	})
	require.NoError(t, err)
	return account
}

func TestAccountRepository_CreateAndLookup(t *testing.T) {
	cleanupTables(t)
	repo := NewAccountRepository(testDB)
	ctx := context.Background()

	created := seedAccount(t, repo, "alice", "alice@example.com")
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.Authorities)
	assert.Nil(t, created.FailedLoginAttempts)

	byUsername, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountRepository_DuplicateUsernameConflicts(t *testing.T) {
	cleanupTables(t)
	repo := NewAccountRepository(testDB)

	seedAccount(t, repo, "bob12", "bob@example.com")

	_, err := repo.Create(context.Background(), &models.Account{
		Username: "bob12", Email: "other@example.com", PasswordHash: "x", FirstName: "B", LastName: "B",
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAccountRepository_UpdateLoginFailures(t *testing.T) {
	cleanupTables(t)
	repo := NewAccountRepository(testDB)
	ctx := context.Background()

	account := seedAccount(t, repo, "carol", "carol@example.com")

	failed := 2
	when := time.UnixMilli(1700000000000)
	require.NoError(t, repo.UpdateLoginFailures(ctx, account.ID, &failed, &when))

	reloaded, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.FailedLoginAttempts)
	assert.Equal(t, 2, *reloaded.FailedLoginAttempts)
	require.NotNil(t, reloaded.LastFailedLoginTime)
	assert.Equal(t, int64(1700000000000), reloaded.LastFailedLoginTime.UnixMilli())

	require.NoError(t, repo.UpdateLoginFailures(ctx, account.ID, nil, reloaded.LastFailedLoginTime))
	reloaded, err = repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.FailedLoginAttempts)
}

func TestAccountRepository_AddAuthorityIsIdempotent(t *testing.T) {
	cleanupTables(t)
	repo := NewAccountRepository(testDB)
	ctx := context.Background()

	seedAccount(t, repo, "dave1", "dave@example.com")

	updated, err := repo.AddAuthority(ctx, "dave1", models.AuthorityBasicUser)
	require.NoError(t, err)
	assert.Equal(t, []string{models.AuthorityBasicUser}, updated.Authorities)

	updated, err = repo.AddAuthority(ctx, "dave1", models.AuthorityBasicUser)
	require.NoError(t, err)
	assert.Equal(t, []string{models.AuthorityBasicUser}, updated.Authorities)

	_, err = repo.AddAuthority(ctx, "ghost", models.AuthorityBasicUser)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountRepository_Search(t *testing.T) {
	cleanupTables(t)
	repo := NewAccountRepository(testDB)
	ctx := context.Background()

	seedAccount(t, repo, "erin1", "erin@example.com")
	seedAccount(t, repo, "frank", "frank@example.com")

	results, err := repo.Search(ctx, models.SearchCriteria{})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = repo.Search(ctx, models.SearchCriteria{EmailAddress: "frank@example.com"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "frank", results[0].Username)

	results, err = repo.Search(ctx, models.SearchCriteria{Username: "erin1", EmailAddress: "frank@example.com"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAccountRepository_UpdateAndDelete(t *testing.T) {
	cleanupTables(t)
	repo := NewAccountRepository(testDB)
	ctx := context.Background()

	account := seedAccount(t, repo, "grace", "grace@example.com")
	account.City = "Columbus"
	account.Username = "ignored"

	updated, err := repo.Update(ctx, account.ID, account)
	require.NoError(t, err)
	assert.Equal(t, "Columbus", updated.City)
	assert.Equal(t, "grace", updated.Username)

	require.NoError(t, repo.Delete(ctx, account.ID))
	assert.ErrorIs(t, repo.Delete(ctx, account.ID), models.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "not-a-uuid"), models.ErrNotFound)
}

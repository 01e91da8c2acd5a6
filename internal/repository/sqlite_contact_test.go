package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactRepo_UpsertAndFind(t *testing.T) {
	repo := NewSQLiteContactRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	c := testutil.NewTestContact("t1", "ent-1", domain.RoleOwner, "u-1")
	require.NoError(t, repo.Upsert(ctx, c))

	c.ContactID = "u-2"
	c.Name = "Replacement"
	require.NoError(t, repo.Upsert(ctx, c))

	got, err := repo.Find(ctx, "t1", "ent-1", "", domain.RoleOwner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u-2", got.ContactID)
	assert.Equal(t, "Replacement", got.Name)

	missing, err := repo.Find(ctx, "t1", "ent-1", "", domain.RoleManager)
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := repo.ListByTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestContactRepo_RejectsIncomplete(t *testing.T) {
	repo := NewSQLiteContactRepo(testutil.NewTestDB(t))

	err := repo.Upsert(context.Background(), &domain.Contact{TenantID: "t1", Role: domain.RoleOwner, ContactID: "u"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

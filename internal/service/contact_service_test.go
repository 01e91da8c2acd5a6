package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContacts_ImportReplacesRoleHolder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testutil.NewTestDB(t), nil)

	n, err := env.contactSvc.Import(ctx, []*domain.Contact{
		testutil.NewTestContact("t1", "asset-1", "System Administrator", "u-1"),
		testutil.NewTestContact("t1", "asset-2", "Security Officer", "u-2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = env.contactSvc.Import(ctx, []*domain.Contact{
		testutil.NewTestContact("t1", "asset-1", "System Administrator", "u-9"),
	})
	require.NoError(t, err)

	list, err := env.contactSvc.ListByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u-9", list[0].ContactID)
	assert.Equal(t, "u-2", list[1].ContactID)
}

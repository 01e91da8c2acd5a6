package codes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		scope Scope
		seq   int
		want  string
	}{
		{TenantScope("t1"), 7, "ACT_007"},
		{CampaignScope("t1", "CAMP_001"), 12, "ACT_CAMP_001_012"},
		{ScanScope("t1", "SCAN_8F3A2B1C"), 1, "ACT_SCAN_8F3A2B1C_001"},
		{ScanScope("t1", "scan-0f9e8d7c-6b5a-4321-a0b1-c2d3e4f5a6b7"), 1, "ACT_scan-0f9e8d7c-6b5a-4321-a0b1-c2d3e4f5a6b7_001"},
		{TenantScope("t1"), 1234, "ACT_1234"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Format("ACT", tc.scope, tc.seq, 3))
	}
}

func TestScopeKeyAndValidate(t *testing.T) {
	assert.Equal(t, "t1/tenant", TenantScope("t1").Key())
	assert.Equal(t, "t1/scan/SCAN_X", ScanScope("t1", "SCAN_X").Key())
	assert.NotEqual(t, CampaignScope("t1", "X").Key(), ScanScope("t1", "X").Key())

	assert.ErrorIs(t, CampaignScope("t1", "").Validate(), domain.ErrValidation)
	assert.ErrorIs(t, TenantScope("").Validate(), domain.ErrValidation)
	assert.ErrorIs(t, Scope{Kind: "region", TenantID: "t1"}.Validate(), domain.ErrValidation)
}

func TestScopeFor(t *testing.T) {
	scan := testutil.NewTestScan("t1", testutil.WithScanCode("SCAN_01"))
	assert.Equal(t, ScanScope("t1", "SCAN_01"), ScopeFor(scan))

	camp := testutil.NewTestCampaign("t1", testutil.WithCampaignCode("CAMP_009"))
	assert.Equal(t, CampaignScope("t1", "CAMP_009"), ScopeFor(camp))
}

func allocate(t *testing.T, uow db.UnitOfWork, a *Allocator, scope Scope, subject string) string {
	t.Helper()
	var code string
	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		var err error
		code, err = a.Allocate(ctx, tx, scope, subject)
		return err
	})
	require.NoError(t, err)
	return code
}

func TestAllocate_SequentialAndIdempotent(t *testing.T) {
	uow := testutil.NewTestUoW(testutil.NewTestDB(t))
	a := NewAllocator("", 0)
	scope := CampaignScope("t1", "CAMP_001")

	assert.Equal(t, "ACT_CAMP_001_001", allocate(t, uow, a, scope, "item-a"))
	assert.Equal(t, "ACT_CAMP_001_002", allocate(t, uow, a, scope, "item-b"))
	assert.Equal(t, "ACT_CAMP_001_001", allocate(t, uow, a, scope, "item-a"), "retry returns the issued code")
	assert.Equal(t, "ACT_CAMP_001_003", allocate(t, uow, a, scope, "item-c"))
}

func TestAllocate_RollbackBurnsNothing(t *testing.T) {
	uow := testutil.NewTestUoW(testutil.NewTestDB(t))
	a := NewAllocator("ACT", 3)
	scope := TenantScope("t1")
	boom := errors.New("boom")

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if _, err := a.Allocate(ctx, tx, scope, "x"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, "ACT_001", allocate(t, uow, a, scope, "y"))
}

func TestAllocate_RejectsBadInput(t *testing.T) {
	uow := testutil.NewTestUoW(testutil.NewTestDB(t))
	a := NewAllocator("ACT", 3)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		_, err := a.Allocate(ctx, tx, ScanScope("t1", ""), "x")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		_, err := a.Allocate(ctx, tx, TenantScope("t1"), "")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// N concurrent allocations against one scope must yield N distinct codes.
func TestAllocate_ConcurrentSingleScope(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	uow := db.NewSQLiteUnitOfWork(database)
	a := NewAllocator("ACT", 3)
	scope := ScanScope("t1", "SCAN_7C1E44D0")
	ctx := context.Background()

	const n = 64
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := db.Retry(ctx, db.DefaultRetryPolicy(), db.IsBusy, func(ctx context.Context) error {
				return uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
					code, err := a.Allocate(ctx, tx, scope, fmt.Sprintf("subject-%d", i))
					codes[i] = code
					return err
				})
			})
			if err != nil {
				t.Errorf("allocation %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, c := range codes {
		require.NotEmpty(t, c)
		seen[c] = true
	}
	assert.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[Format("ACT", scope, i, 3)], "missing seq %d", i)
	}
}

// Allocations on different scopes proceed independently.
func TestAllocate_ConcurrentManyScopes(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	uow := db.NewSQLiteUnitOfWork(database)
	a := NewAllocator("ACT", 3)
	ctx := context.Background()

	const scopes, perScope = 5, 12
	var mu sync.Mutex
	got := map[string]map[string]bool{}
	var wg sync.WaitGroup
	for s := 0; s < scopes; s++ {
		scope := CampaignScope("t1", fmt.Sprintf("CAMP_%03d", s))
		for i := 0; i < perScope; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				var code string
				err := db.Retry(ctx, db.DefaultRetryPolicy(), db.IsBusy, func(ctx context.Context) error {
					return uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
						var err error
						code, err = a.Allocate(ctx, tx, scope, fmt.Sprintf("%s-%d", scope.Token, i))
						return err
					})
				})
				if err != nil {
					t.Errorf("allocation: %v", err)
					return
				}
				mu.Lock()
				if got[scope.Key()] == nil {
					got[scope.Key()] = map[string]bool{}
				}
				got[scope.Key()][code] = true
				mu.Unlock()
			}(i)
		}
	}
	wg.Wait()

	require.Len(t, got, scopes)
	for key, codes := range got {
		assert.Len(t, codes, perScope, "scope %s", key)
	}
}

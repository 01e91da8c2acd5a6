package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/remediate/internal/domain"
)

// resolvePlan accepts a full plan ID, a unique ID prefix, or a scope token
// (such as SCAN_EDGE) among the tenant's plans.
func resolvePlan(ctx context.Context, app *App, tenantID, input string) (*domain.Plan, error) {
	if input == "" {
		return nil, fmt.Errorf("plan ID is required")
	}
	plan, err := app.Plans.GetByID(ctx, input)
	if err == nil {
		if plan.TenantID != tenantID {
			return nil, &domain.NotFoundError{Entity: "plan", ID: input}
		}
		return plan, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	plans, err := app.Plans.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if strings.EqualFold(p.ScopeToken, input) {
			return p, nil
		}
	}

	var matches []*domain.Plan
	for _, p := range plans {
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &domain.NotFoundError{Entity: "plan", ID: input}
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("plan ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolveItem accepts an item ID, or an item code when a plan is given.
func resolveItem(ctx context.Context, app *App, tenantID, planRef, input string) (*domain.Item, error) {
	if input == "" {
		return nil, fmt.Errorf("item is required")
	}
	if planRef == "" {
		item, err := app.Review.GetItem(ctx, input)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) && strings.HasPrefix(strings.ToUpper(input), "ACT_") {
				return nil, fmt.Errorf("%w (item codes need --plan)", err)
			}
			return nil, err
		}
		if item.TenantID != tenantID {
			return nil, &domain.NotFoundError{Entity: "item", ID: input}
		}
		return item, nil
	}

	plan, err := resolvePlan(ctx, app, tenantID, planRef)
	if err != nil {
		return nil, err
	}
	items, err := app.Plans.ListItems(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if strings.EqualFold(it.Code, input) || it.ID == input {
			return it, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "item", ID: input}
}

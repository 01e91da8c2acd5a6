package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/remediate/internal/cli/formatter"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/service"
	"github.com/alexanderramin/remediate/internal/source"
	"github.com/spf13/cobra"
)

func newPlanCmd(app *App, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate, inspect and publish action plans",
	}

	cmd.AddCommand(
		newPlanGenerateCmd(app, flags),
		newPlanListCmd(app, flags),
		newPlanShowCmd(app, flags),
		newPlanPublishCmd(app, flags),
	)

	return cmd
}

type planView struct {
	Plan     *domain.Plan   `json:"plan"`
	Items    []*domain.Item `json:"items"`
	Replaced int            `json:"replaced,omitempty"`
}

func newPlanGenerateCmd(app *App, flags *globalFlags) *cobra.Command {
	var regenerate bool

	cmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Generate a draft plan from a scan or campaign document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := source.LoadFile(args[0])
			if err != nil {
				return err
			}
			origin := doc.Origin()
			if origin == nil {
				return fmt.Errorf("%s holds %s, not a scan or campaign (use contacts import)", args[0], doc.Kind)
			}
			if flags.tenant != "" && flags.tenant != origin.Tenant() {
				return fmt.Errorf("document belongs to tenant %q, not %q", origin.Tenant(), flags.tenant)
			}

			res, err := app.Plans.Generate(cmd.Context(), service.GenerateRequest{
				Origin:     origin,
				Actor:      flags.actorID(),
				Regenerate: regenerate,
			})
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Generated %d item(s) for %s %s", len(res.Items), origin.Kind(), res.Plan.ScopeToken)
			if res.Replaced > 0 {
				fmt.Fprintf(&b, " (replaced %d)", res.Replaced)
			}
			b.WriteString("\n\n")
			b.WriteString(formatter.FormatPlanDetail(res.Plan, res.Items))
			return app.render(cmd.OutOrStdout(), flags, planView{Plan: res.Plan, Items: res.Items, Replaced: res.Replaced}, "Plan", b.String())
		},
	}

	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Replace the unpublished items of an existing draft")
	return cmd
}

func newPlanListCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tenant's plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := flags.tenantID(app)
			if err != nil {
				return err
			}
			plans, err := app.Plans.ListByTenant(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			if plans == nil {
				plans = []*domain.Plan{}
			}
			return app.render(cmd.OutOrStdout(), flags, plans, "Plans", formatter.FormatPlanList(plans))
		},
	}
}

func newPlanShowCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan>",
		Short: "Show a plan and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := flags.tenantID(app)
			if err != nil {
				return err
			}
			plan, err := resolvePlan(cmd.Context(), app, tenant, args[0])
			if err != nil {
				return err
			}
			items, err := app.Plans.ListItems(cmd.Context(), plan.ID)
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), flags, planView{Plan: plan, Items: items}, "Plan",
				formatter.FormatPlanDetail(plan, items))
		},
	}
}

func newPlanPublishCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <plan>",
		Short: "Publish every validated, included item as an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := flags.tenantID(app)
			if err != nil {
				return err
			}
			plan, err := resolvePlan(cmd.Context(), app, tenant, args[0])
			if err != nil {
				return err
			}
			res, err := app.Publisher.Publish(cmd.Context(), service.PublishRequest{PlanID: plan.ID, Actor: flags.actorID()})
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), flags, res, "Publish",
				formatter.FormatPublishOutcome(res.Plan, res.Actions, res.AlreadyPublished, app.now()))
		},
	}
}

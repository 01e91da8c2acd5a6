package cli

import (
	"fmt"

	"github.com/alexanderramin/remediate/internal/cli/formatter"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/repository"
	"github.com/alexanderramin/remediate/internal/service"
	"github.com/spf13/cobra"
)

func newActionCmd(app *App, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "List published actions and record standalone ones",
	}

	cmd.AddCommand(
		newActionListCmd(app, flags),
		newActionAddCmd(app, flags),
	)

	return cmd
}

func newActionListCmd(app *App, flags *globalFlags) *cobra.Command {
	var planRef, sourceType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := flags.tenantID(app)
			if err != nil {
				return err
			}
			f := repository.ActionFilter{TenantID: tenant, SourceType: domain.SourceType(sourceType)}
			if planRef != "" {
				plan, err := resolvePlan(cmd.Context(), app, tenant, planRef)
				if err != nil {
					return err
				}
				f.PlanID = plan.ID
			}
			actions, err := app.Actions.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if actions == nil {
				actions = []*domain.PublishedAction{}
			}
			return app.render(cmd.OutOrStdout(), flags, actions, "Actions", formatter.FormatActionList(actions, app.now()))
		},
	}

	cmd.Flags().StringVar(&planRef, "plan", "", "Only actions published from this plan")
	cmd.Flags().StringVar(&sourceType, "source", "", "Only actions of this source (campaign, scan, standalone)")
	return cmd
}

func newActionAddCmd(app *App, flags *globalFlags) *cobra.Command {
	var in service.StandaloneInput
	var assigneeID, assigneeName string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an action that belongs to no plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := flags.tenantID(app)
			if err != nil {
				return err
			}
			in.TenantID = tenant
			in.Actor = flags.actorID()
			if assigneeID != "" {
				in.Assignee = &domain.Assignee{ID: assigneeID, Name: assigneeName}
			}

			action, err := app.Actions.CreateStandalone(cmd.Context(), in)
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), flags, action, "",
				fmt.Sprintf("Created action %s: %s", formatter.Bold(action.Code), action.Title))
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Title")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().StringVar(&in.Objective, "objective", "", "Expected outcome")
	cmd.Flags().StringVar(&in.Severity, "severity", "", "Severity (critical, high, major, medium, minor, low, info)")
	cmd.Flags().StringVar(&in.Priority, "priority", "P3", "Priority (P1, P2, P3)")
	cmd.Flags().IntVar(&in.DueDays, "due-days", 30, "Due window in days")
	cmd.Flags().StringVar(&in.SuggestedRole, "role", "", "Suggested role")
	cmd.Flags().StringVar(&in.EntityID, "entity", "", "Entity ID")
	cmd.Flags().StringVar(&in.EntityName, "entity-name", "", "Entity name")
	cmd.Flags().StringVar(&assigneeID, "assignee-id", "", "Assignee ID")
	cmd.Flags().StringVar(&assigneeName, "assignee-name", "", "Assignee display name")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("severity")

	return cmd
}

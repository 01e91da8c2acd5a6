package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/remediate/internal/cli/formatter"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/spf13/cobra"
)

func newItemCmd(app *App, flags *globalFlags) *cobra.Command {
	var planRef string

	cmd := &cobra.Command{
		Use:   "item",
		Short: "Review the items of a draft plan",
		Long: `Review the items of a draft plan.

Items are addressed by ID, or by code (ACT_SCAN_EDGE_001) together with --plan.`,
	}
	cmd.PersistentFlags().StringVar(&planRef, "plan", "", "Plan ID, ID prefix or scope token; enables item codes")

	decision := func(use, short string, apply func(ctx context.Context, id string) (*domain.Item, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <item>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				item, err := lookupItem(cmd, app, flags, planRef, args[0])
				if err != nil {
					return err
				}
				updated, err := apply(cmd.Context(), item.ID)
				if err != nil {
					return err
				}
				return app.render(cmd.OutOrStdout(), flags, updated, "",
					fmt.Sprintf("%s %s", formatter.Bold(updated.Code), formatter.ItemStatusPill(updated.Status)))
			},
		}
	}

	cmd.AddCommand(
		newItemShowCmd(app, flags, &planRef),
		decision("validate", "Approve an item for publication", func(ctx context.Context, id string) (*domain.Item, error) {
			return app.Review.Validate(ctx, id)
		}),
		decision("exclude", "Exclude an item from publication", func(ctx context.Context, id string) (*domain.Item, error) {
			return app.Review.Exclude(ctx, id)
		}),
		decision("include", "Include a validated item that was set aside (use validate or reopen for excluded items)", func(ctx context.Context, id string) (*domain.Item, error) {
			return app.Review.SetIncluded(ctx, id, true)
		}),
		decision("reopen", "Return an item to PROPOSED", func(ctx context.Context, id string) (*domain.Item, error) {
			return app.Review.Reopen(ctx, id)
		}),
		newItemAssignCmd(app, flags, &planRef),
		newItemEditCmd(app, flags, &planRef),
	)

	return cmd
}

func lookupItem(cmd *cobra.Command, app *App, flags *globalFlags, planRef, ref string) (*domain.Item, error) {
	tenant, err := flags.tenantID(app)
	if err != nil {
		return nil, err
	}
	return resolveItem(cmd.Context(), app, tenant, planRef, ref)
}

func newItemShowCmd(app *App, flags *globalFlags, planRef *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item>",
		Short: "Show an item with the reasoning behind each derived field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := lookupItem(cmd, app, flags, *planRef, args[0])
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), flags, item, "Item", formatter.FormatItemDetail(item))
		},
	}
}

func newItemAssignCmd(app *App, flags *globalFlags, planRef *string) *cobra.Command {
	var id, name string

	cmd := &cobra.Command{
		Use:   "assign <item>",
		Short: "Assign an item to a person manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := lookupItem(cmd, app, flags, *planRef, args[0])
			if err != nil {
				return err
			}
			updated, err := app.Review.Assign(cmd.Context(), item.ID, domain.Assignee{ID: id, Name: name})
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), flags, updated, "",
				fmt.Sprintf("Assigned %s to %s", formatter.Bold(updated.Code), name))
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Assignee ID")
	cmd.Flags().StringVar(&name, "name", "", "Assignee display name")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newItemEditCmd(app *App, flags *globalFlags, planRef *string) *cobra.Command {
	var title, description, recommendation, severity, priority, role string
	var dueDays int

	cmd := &cobra.Command{
		Use:   "edit <item>",
		Short: "Edit the content or classification of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var edit domain.ItemEdit
			f := cmd.Flags()
			if f.Changed("title") {
				edit.Title = &title
			}
			if f.Changed("description") {
				edit.Description = &description
			}
			if f.Changed("recommendation") {
				edit.Recommendation = &recommendation
			}
			if f.Changed("severity") {
				edit.Severity = &severity
			}
			if f.Changed("priority") {
				edit.Priority = &priority
			}
			if f.Changed("due-days") {
				edit.DueDays = &dueDays
			}
			if f.Changed("role") {
				edit.SuggestedRole = &role
			}
			if edit.Empty() {
				return fmt.Errorf("nothing to edit: pass at least one field flag")
			}

			item, err := lookupItem(cmd, app, flags, *planRef, args[0])
			if err != nil {
				return err
			}
			updated, err := app.Review.Edit(cmd.Context(), item.ID, edit)
			if err != nil {
				return err
			}
			return app.render(cmd.OutOrStdout(), flags, updated, "Item", formatter.FormatItemDetail(updated))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&recommendation, "recommendation", "", "Recommendation")
	cmd.Flags().StringVar(&severity, "severity", "", "Severity in the plan's vocabulary")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (P1, P2, P3)")
	cmd.Flags().IntVar(&dueDays, "due-days", 0, "Due window in days")
	cmd.Flags().StringVar(&role, "role", "", "Suggested role")

	return cmd
}

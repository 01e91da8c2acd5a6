package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexanderramin/remediate/internal/cli/formatter"
	"github.com/alexanderramin/remediate/internal/service"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Plans     service.PlanService
	Review    service.ReviewService
	Publisher service.PublishService
	Actions   service.ActionService
	Contacts  service.ContactService

	// Serve and Watch run the HTTP API and the inbox until ctx is done.
	// A nil function disables the command.
	Serve func(ctx context.Context, addr string) error
	Watch func(ctx context.Context) error

	HTTPAddr string
	// DefaultTenant applies when neither --tenant nor REMEDIATE_TENANT is set.
	DefaultTenant string

	// IsTerminal reports whether output goes to a terminal; boxes are only
	// drawn when it does.
	IsTerminal func() bool
	Now        func() time.Time
}

type globalFlags struct {
	tenant string
	actor  string
	json   bool
}

// NewRootCmd creates the top-level "remediate" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "remediate",
		Short:         "Turn audit campaigns and vulnerability scans into reviewed action plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.tenant, "tenant", "", "Tenant ID (default $REMEDIATE_TENANT)")
	root.PersistentFlags().StringVar(&flags.actor, "actor", "", "Actor recorded on changes (default $USER)")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		newPlanCmd(app, flags),
		newItemCmd(app, flags),
		newActionCmd(app, flags),
		newContactsCmd(app, flags),
		newServeCmd(app),
		newWatchCmd(app),
	)

	return root
}

func (f *globalFlags) tenantID(app *App) (string, error) {
	switch {
	case f.tenant != "":
		return f.tenant, nil
	case os.Getenv("REMEDIATE_TENANT") != "":
		return os.Getenv("REMEDIATE_TENANT"), nil
	case app.DefaultTenant != "":
		return app.DefaultTenant, nil
	}
	return "", fmt.Errorf("tenant is required (use --tenant or REMEDIATE_TENANT)")
}

func (f *globalFlags) actorID() string {
	if f.actor != "" {
		return f.actor
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func (app *App) now() time.Time {
	if app.Now != nil {
		return app.Now()
	}
	return time.Now().UTC()
}

// render prints v as indented JSON with --json, otherwise the formatted
// text, boxed when writing to a terminal.
func (app *App) render(w io.Writer, flags *globalFlags, v any, title, text string) error {
	if flags.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	if app.IsTerminal != nil && app.IsTerminal() && title != "" {
		text = formatter.RenderBox(title, text)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

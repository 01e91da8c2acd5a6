package cli

import (
	"fmt"

	"github.com/alexanderramin/remediate/internal/cli/formatter"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/source"
	"github.com/spf13/cobra"
)

func newContactsCmd(app *App, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the role directory used for assignment",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "import <file>",
			Short: "Import a contacts document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := source.LoadFile(args[0])
				if err != nil {
					return err
				}
				if doc.Kind != source.KindContacts {
					return fmt.Errorf("%s holds a %s document, not contacts", args[0], doc.Kind)
				}
				n, err := app.Contacts.Import(cmd.Context(), doc.Contacts)
				if err != nil {
					return err
				}
				return app.render(cmd.OutOrStdout(), flags, map[string]int{"imported": n}, "",
					fmt.Sprintf("Imported %d contact(s)", n))
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the tenant's contacts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				tenant, err := flags.tenantID(app)
				if err != nil {
					return err
				}
				contacts, err := app.Contacts.ListByTenant(cmd.Context(), tenant)
				if err != nil {
					return err
				}
				if contacts == nil {
					contacts = []*domain.Contact{}
				}
				return app.render(cmd.OutOrStdout(), flags, contacts, "Contacts", formatter.FormatContacts(contacts))
			},
		},
	)

	return cmd
}

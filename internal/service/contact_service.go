package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/repository"
)

type contactService struct {
	contacts repository.ContactRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewContactService(contacts repository.ContactRepo, uow db.UnitOfWork, observers ...UseCaseObserver) ContactService {
	return &contactService{contacts: contacts, uow: uow, observer: useCaseObserverOrNoop(observers)}
}

// Import validates every contact before writing any of them.
func (s *contactService) Import(ctx context.Context, contacts []*domain.Contact) (n int, err error) {
	fields := map[string]any{"count": len(contacts)}
	defer observe(ctx, s.observer, "import-contacts", fields, &err)()

	for i, c := range contacts {
		if err := c.Validate(); err != nil {
			return 0, fmt.Errorf("contact #%d: %w", i+1, err)
		}
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txContacts := repository.NewSQLiteContactRepo(tx)
		for _, c := range contacts {
			if err := txContacts.Upsert(ctx, c); err != nil {
				return fmt.Errorf("saving contact %s: %w", c.ContactID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(contacts), nil
}

func (s *contactService) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Contact, error) {
	return s.contacts.ListByTenant(ctx, tenantID)
}

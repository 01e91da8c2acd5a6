package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexanderramin/remediate/internal/classify"
	"github.com/alexanderramin/remediate/internal/cli"
	"github.com/alexanderramin/remediate/internal/codes"
	"github.com/alexanderramin/remediate/internal/config"
	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/httpapi"
	"github.com/alexanderramin/remediate/internal/inbox"
	"github.com/alexanderramin/remediate/internal/normalize"
	"github.com/alexanderramin/remediate/internal/repository"
	"github.com/alexanderramin/remediate/internal/service"
	"github.com/mattn/go-isatty"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Config path: REMEDIATE_CONFIG or ~/.remediate/config.yaml
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	database, err := db.OpenDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	planRepo := repository.NewSQLitePlanRepo(database)
	itemRepo := repository.NewSQLiteItemRepo(database)
	actionRepo := repository.NewSQLiteActionRepo(database)
	contactRepo := repository.NewSQLiteContactRepo(database)

	// Wire unit of work for transactional operations
	uow := db.NewSQLiteUnitOfWork(database)

	sla, err := cfg.ClassifierSLA()
	if err != nil {
		return err
	}
	classifier := classify.New(contactRepo, classify.WithSLA(sla))
	normalizer := normalize.New(cfg.NormalizeOptions())
	allocator := codes.NewAllocator(cfg.Codes.Prefix, cfg.Codes.Width)
	retry := cfg.RetryPolicy()
	observer := service.NewSlogUseCaseObserver(logger)

	// Wire services
	plans := service.NewPlanService(planRepo, itemRepo, uow, normalizer, classifier, allocator,
		service.GenerationOptions{StaleAfter: cfg.Generation.StaleAfter, Retry: retry}, observer)
	review := service.NewReviewService(itemRepo, uow, observer)
	publisher := service.NewPublishService(uow, retry, observer)
	actions := service.NewActionService(actionRepo, uow, allocator, retry, observer)
	contacts := service.NewContactService(contactRepo, uow, observer)

	app := &cli.App{
		Plans:     plans,
		Review:    review,
		Publisher: publisher,
		Actions:   actions,
		Contacts:  contacts,
		HTTPAddr:  cfg.HTTP.Addr,
	}

	app.IsTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	app.Serve = func(ctx context.Context, addr string) error {
		srv := httpapi.NewServer(httpapi.Services{
			Plans:     plans,
			Review:    review,
			Publisher: publisher,
			Actions:   actions,
		}, database, logger, version)
		return srv.ListenAndServe(ctx, addr)
	}

	app.Watch = func(ctx context.Context) error {
		proc := inbox.NewProcessor(inbox.Dirs{Inbox: cfg.Inbox.Dir}, plans, contacts, logger)
		return inbox.Run(ctx, proc, inbox.Options{
			Workers:      cfg.Inbox.Workers,
			Debounce:     cfg.Inbox.Debounce,
			PollInterval: cfg.Inbox.PollInterval,
		})
	}

	// Execute root command
	rootCmd := cli.NewRootCmd(app)
	return rootCmd.Execute()
}

// Package inbox turns documents dropped into a folder into plans and
// contact imports.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alexanderramin/remediate/internal/service"
	"github.com/alexanderramin/remediate/internal/source"
)

// Outcome is what processing one file produced.
type Outcome struct {
	File     string
	Kind     source.Kind
	PlanID   string
	Items    int
	Contacts int
	MovedTo  string
}

// Processor generates a plan from each campaign or scan document and
// imports contact directories. A document for an origin that already has
// a DRAFT plan regenerates it.
type Processor struct {
	dirs     Dirs
	plans    service.PlanService
	contacts service.ContactService
	actor    string
	logger   *slog.Logger
}

func NewProcessor(dirs Dirs, plans service.PlanService, contacts service.ContactService, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{dirs: dirs, plans: plans, contacts: contacts, actor: "inbox", logger: logger}
}

// Process handles one file and moves it to done/ or failed/. A failure
// also leaves a <name>.error file next to the failed document.
func (p *Processor) Process(ctx context.Context, path string) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{File: filepath.Base(path)}

	procErr := p.apply(ctx, path, out)

	dir := p.dirs.DoneDir()
	if procErr != nil {
		dir = p.dirs.FailedDir()
	}
	dst := destination(dir, out.File, time.Now())
	if err := moveFile(path, dst); err != nil {
		return out, errors.Join(procErr, fmt.Errorf("moving %s: %w", out.File, err))
	}
	out.MovedTo = dst

	if procErr != nil {
		if err := os.WriteFile(dst+".error", []byte(procErr.Error()+"\n"), 0640); err != nil {
			p.logger.Warn("writing inbox error file", "file", out.File, "error", err)
		}
		p.logger.Error("inbox file failed", "file", out.File, "kind", out.Kind, "error", procErr,
			"duration_ms", time.Since(start).Milliseconds())
		return out, procErr
	}

	p.logger.Info("inbox file processed", "file", out.File, "kind", out.Kind, "plan_id", out.PlanID,
		"items", out.Items, "contacts", out.Contacts, "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (p *Processor) apply(ctx context.Context, path string, out *Outcome) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat inbox file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("rejected symlink: %s", out.File)
	}

	doc, err := source.LoadFile(path)
	if err != nil {
		return err
	}
	out.Kind = doc.Kind

	if doc.Kind == source.KindContacts {
		n, err := p.contacts.Import(ctx, doc.Contacts)
		if err != nil {
			return fmt.Errorf("importing contacts: %w", err)
		}
		out.Contacts = n
		return nil
	}

	origin := doc.Origin()
	regenerate := false
	if existing, err := p.plans.GetByOrigin(ctx, origin.Kind(), origin.OriginID()); err == nil {
		regenerate = existing != nil
	}
	res, err := p.plans.Generate(ctx, service.GenerateRequest{Origin: origin, Actor: p.actor, Regenerate: regenerate})
	if err != nil {
		return fmt.Errorf("generating %s plan: %w", doc.Kind, err)
	}
	out.PlanID = res.Plan.ID
	out.Items = len(res.Items)
	return nil
}

// Handler adapts Process to the watcher callback; errors are already
// logged by Process.
func (p *Processor) Handler() Handler {
	return func(ctx context.Context, path string) {
		_, _ = p.Process(ctx, path)
	}
}

// Options configures Run.
type Options struct {
	Workers      int
	Debounce     time.Duration
	PollInterval time.Duration
}

// Run prepares the inbox, handles files already present, then watches for
// new ones until ctx is cancelled. A positive PollInterval selects polling
// instead of filesystem notifications.
func Run(ctx context.Context, p *Processor, opts Options) error {
	if err := EnsureDirs(p.dirs); err != nil {
		return err
	}
	handler := p.Handler()
	if err := ScanExisting(ctx, p.dirs.Inbox, handler); err != nil {
		return fmt.Errorf("scanning inbox: %w", err)
	}
	p.logger.Info("watching inbox", "dir", p.dirs.Inbox, "workers", opts.Workers, "poll_interval", opts.PollInterval)
	if opts.PollInterval > 0 {
		return NewPollWatcher(p.dirs.Inbox, handler, opts.PollInterval).Run(ctx)
	}
	return NewWatcher(p.dirs.Inbox, handler, opts.Debounce, opts.Workers, p.logger).Run(ctx)
}

package schema

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Runner applies and reverts registered migrations against one Driver. A
// Runner is not safe for concurrent use, and two runners against the same
// database are not coordinated.
type Runner struct {
	drv    Driver
	reg    *Registry
	ledger *Ledger
	base   Logger
	log    Logger
	state  State
}

// NewRunner returns a Runner over the migrations in reg. A nil log discards
// output.
func NewRunner(drv Driver, reg *Registry, log Logger) *Runner {
	if log == nil {
		log = discard{}
	}
	return &Runner{
		drv:    drv,
		reg:    reg,
		ledger: NewLedger(drv),
		base:   log,
		log:    log,
	}
}

// State reports where the runner is in its current or last operation.
func (r *Runner) State() State { return r.state }

// Ledger exposes the ledger the runner writes to.
func (r *Runner) Ledger() *Ledger { return r.ledger }

// Migrate applies every registered migration not yet in the ledger, all
// under one new batch number.
func (r *Runner) Migrate(ctx context.Context) (*Report, error) {
	rep := r.newReport()
	defer r.finish()
	return rep, r.migrate(ctx, rep)
}

// Rollback reverts every migration of the most recent batch, most recently
// applied first, with foreign key checks suspended.
func (r *Runner) Rollback(ctx context.Context) (*Report, error) {
	rep := r.newReport()
	defer r.finish()

	_, byName, err := r.discover()
	if err != nil {
		return rep, err
	}
	exists, err := r.ledger.Exists(ctx)
	if err != nil {
		return rep, err
	}
	if !exists {
		r.log.Println("no migrations table found, nothing to rollback")
		return rep, nil
	}
	if _, err = r.rollbackBatch(ctx, rep, byName); err != nil {
		return rep, err
	}
	if len(rep.RolledBack) == 0 {
		r.log.Println("nothing to rollback")
	}
	return rep, nil
}

// Fresh rolls back every batch and re-applies the same migrations with their
// original batch numbers. When there is nothing recorded it runs Migrate.
func (r *Runner) Fresh(ctx context.Context) (*Report, error) {
	rep := r.newReport()
	defer r.finish()
	r.state = Refreshing

	_, byName, err := r.discover()
	if err != nil {
		return rep, err
	}
	exists, err := r.ledger.Exists(ctx)
	if err != nil {
		return rep, err
	}
	if !exists {
		return rep, r.fallback(ctx, rep)
	}
	recs, err := r.ledger.Records(ctx)
	switch {
	case errors.Is(err, ErrLedgerMissing):
		return rep, r.fallback(ctx, rep)
	case err != nil:
		return rep, err
	}
	if len(recs) == 0 {
		return rep, r.fallback(ctx, rep)
	}

	for {
		more, err := r.rollbackBatch(ctx, rep, byName)
		if err != nil {
			return rep, err
		}
		if !more {
			break
		}
	}

	r.state = Applying
	for _, rec := range recs {
		m, ok := byName[rec.Name]
		if !ok {
			return rep, &ScriptError{
				Name:      rec.Name,
				Direction: Up,
				Err:       errors.New("migration is not registered"),
			}
		}
		if err = r.run(ctx, m, Up); err != nil {
			return rep, err
		}
		err = r.ledger.RecordApplied(ctx, rec.Name, rec.Batch)
		switch {
		case errors.Is(err, ErrDuplicateApplied):
			rep.Skipped = append(rep.Skipped, rec.Name)
			continue
		case err != nil:
			return rep, err
		}
		rep.Applied = append(rep.Applied, rec.Name)
		r.log.Printf("migrated %s (batch %d)\n", rec.Name, rec.Batch)
	}
	if len(rep.Applied) == 0 {
		return rep, r.fallback(ctx, rep)
	}
	return rep, nil
}

// Pending lists the migrations Migrate would apply, without applying them.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	defer r.finish()
	ms, _, err := r.discover()
	if err != nil {
		return nil, err
	}
	applied, _, err := r.appliedSet(ctx)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, m := range ms[1:] {
		if !applied[m.Name] {
			pending = append(pending, m.Name)
		}
	}
	return pending, nil
}

// Baseline records every migration up to and including upTo without running
// it. This enables you to start using this package on an existing database.
func (r *Runner) Baseline(ctx context.Context, upTo string) (*Report, error) {
	rep := r.newReport()
	defer r.finish()

	ms, _, err := r.discover()
	if err != nil {
		return rep, err
	}
	index := -1
	for i, m := range ms[1:] {
		if m.Name == upTo {
			index = i + 1
			break
		}
	}
	if index == -1 {
		return rep, fmt.Errorf("%s does not exist", upTo)
	}

	exists, err := r.ledger.Exists(ctx)
	if err != nil {
		return rep, err
	}
	r.state = Applying
	if !exists {
		if err = r.run(ctx, ms[0], Up); err != nil {
			return rep, err
		}
	}
	rep.Batch, err = r.nextBatch(ctx)
	if err != nil {
		return rep, err
	}
	for _, m := range ms[1 : index+1] {
		err = r.ledger.RecordApplied(ctx, m.Name, rep.Batch)
		switch {
		case errors.Is(err, ErrDuplicateApplied):
			rep.Skipped = append(rep.Skipped, m.Name)
			continue
		case err != nil:
			return rep, err
		}
		rep.Applied = append(rep.Applied, m.Name)
		r.log.Printf("skipped ahead %s\n", m.Name)
	}
	return rep, nil
}

// Status returns every registered migration with its recorded batch.
func (r *Runner) Status(ctx context.Context) ([]StatusEntry, error) {
	defer r.finish()
	ms, _, err := r.discover()
	if err != nil {
		return nil, err
	}
	exists, err := r.ledger.Exists(ctx)
	if err != nil {
		return nil, err
	}
	batches := map[string]int{}
	if exists {
		recs, err := r.ledger.Records(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			batches[rec.Name] = rec.Batch
		}
	}
	entries := make([]StatusEntry, 0, len(ms)-1)
	for _, m := range ms[1:] {
		batch, ok := batches[m.Name]
		entries = append(entries, StatusEntry{
			Name:    m.Name,
			Applied: ok,
			Batch:   batch,
		})
	}
	return entries, nil
}

func (r *Runner) migrate(ctx context.Context, rep *Report) error {
	ms, _, err := r.discover()
	if err != nil {
		return err
	}
	applied, exists, err := r.appliedSet(ctx)
	if err != nil {
		return err
	}
	rep.Batch = 1
	if exists {
		if rep.Batch, err = r.nextBatch(ctx); err != nil {
			return err
		}
	}
	r.warnMissing(ms, applied)

	r.state = Applying
	for i, m := range ms {
		// The bootstrap migration creates the ledger and is never recorded
		if i == 0 {
			if exists {
				continue
			}
			if err = r.run(ctx, m, Up); err != nil {
				return err
			}
			continue
		}
		if applied[m.Name] {
			rep.Skipped = append(rep.Skipped, m.Name)
			continue
		}
		if err = r.run(ctx, m, Up); err != nil {
			return err
		}
		err = r.ledger.RecordApplied(ctx, m.Name, rep.Batch)
		switch {
		case errors.Is(err, ErrDuplicateApplied):
			rep.Skipped = append(rep.Skipped, m.Name)
			continue
		case err != nil:
			return err
		}
		rep.Applied = append(rep.Applied, m.Name)
		r.log.Printf("migrated %s\n", m.Name)
	}
	if len(rep.Applied) == 0 {
		r.log.Println("nothing to migrate")
	}
	return nil
}

// rollbackBatch reverts the highest batch. It reports false when the ledger
// held nothing to revert.
func (r *Runner) rollbackBatch(
	ctx context.Context,
	rep *Report,
	byName map[string]Migration,
) (bool, error) {
	r.state = RollingBack
	batch, ok, err := r.ledger.MaxBatch(ctx)
	if err != nil || !ok {
		return false, err
	}
	recs, err := r.ledger.Batch(ctx, batch)
	if err != nil {
		return false, err
	}
	if len(recs) == 0 {
		return false, nil
	}
	rep.Batch = batch
	err = r.withoutForeignKeys(ctx, func() error {
		for _, rec := range recs {
			m, ok := byName[rec.Name]
			if !ok {
				return &ScriptError{
					Name:      rec.Name,
					Direction: Down,
					Err:       errors.New("migration is not registered"),
				}
			}
			if err := r.run(ctx, m, Down); err != nil {
				return err
			}
			if err := r.ledger.RemoveByName(ctx, rec.Name); err != nil {
				return err
			}
			rep.RolledBack = append(rep.RolledBack, rec.Name)
			r.log.Printf("rolled back %s (batch %d)\n", rec.Name, batch)
		}
		return nil
	})
	return true, err
}

// withoutForeignKeys runs fn with referential-integrity checks disabled and
// always re-enables them afterward.
func (r *Runner) withoutForeignKeys(ctx context.Context, fn func() error) (err error) {
	if err = r.drv.SetForeignKeyChecks(ctx, false); err != nil {
		return connErr("disable foreign key checks", err)
	}
	defer func() {
		rerr := r.drv.SetForeignKeyChecks(context.WithoutCancel(ctx), true)
		if rerr != nil && err == nil {
			err = connErr("enable foreign key checks", rerr)
		}
	}()
	return fn()
}

func (r *Runner) fallback(ctx context.Context, rep *Report) error {
	r.log.Println("migration not started, migrating")
	rep.FellBack = true
	return r.migrate(ctx, rep)
}

func (r *Runner) run(ctx context.Context, m Migration, dir Direction) error {
	fn := m.Up
	if dir == Down {
		fn = m.Down
	}
	if fn == nil {
		return &ScriptError{
			Name:      m.Name,
			Direction: dir,
			Err:       errors.New("no function defined"),
		}
	}
	if err := fn(ctx, r.drv); err != nil {
		return &ScriptError{Name: m.Name, Direction: dir, Err: err}
	}
	return nil
}

// discover returns the bootstrap migration followed by the registered ones
// in order, plus the registered ones by name.
func (r *Runner) discover() ([]Migration, map[string]Migration, error) {
	r.state = Discovering
	ms, err := r.reg.Migrations()
	if err != nil {
		return nil, nil, errors.Wrap(err, "sort migrations")
	}
	byName := make(map[string]Migration, len(ms))
	for _, m := range ms {
		byName[m.Name] = m
	}
	return append([]Migration{r.drv.Bootstrap()}, ms...), byName, nil
}

// appliedSet returns the applied set and whether the ledger exists.
func (r *Runner) appliedSet(ctx context.Context) (map[string]bool, bool, error) {
	exists, err := r.ledger.Exists(ctx)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return map[string]bool{}, false, nil
	}
	applied, err := r.ledger.ListApplied(ctx)
	if err != nil {
		return nil, false, err
	}
	return applied, true, nil
}

func (r *Runner) nextBatch(ctx context.Context) (int, error) {
	highest, ok, err := r.ledger.MaxBatch(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return highest + 1, nil
}

func (r *Runner) warnMissing(ms []Migration, applied map[string]bool) {
	known := make(map[string]bool, len(ms))
	for _, m := range ms {
		known[m.Name] = true
	}
	var missing []string
	for name := range applied {
		if !known[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	for _, name := range missing {
		r.log.Printf("missing already-run migration %q\n", name)
	}
}

func (r *Runner) newReport() *Report {
	r.state = Idle
	id := uuid.NewString()
	r.log = r.base
	if rl, ok := r.base.(RunLogger); ok {
		r.log = rl.WithRunID(id)
	}
	return &Report{RunID: id}
}

func (r *Runner) finish() { r.state = Done }

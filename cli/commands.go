package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/egtann/schema"
	"github.com/pkg/errors"
)

type migrateCommand struct {
	app *app

	Dry  bool   `long:"dry" description:"List pending migrations without running them"`
	Skip string `long:"skip" value-name:"NAME" description:"Record migrations up to and including NAME without running them"`
}

func (cmd *migrateCommand) Execute([]string) error {
	if cmd.Dry && cmd.Skip != "" {
		return errors.New("cannot skip ahead with dry mode")
	}
	r, drv, err := cmd.app.runner()
	if err != nil {
		return err
	}
	defer drv.Close()
	ctx, cancel := signalContext()
	defer cancel()

	if cmd.Dry {
		pending, err := r.Pending(ctx)
		if err != nil {
			return errors.Wrap(err, "pending")
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.app.stdout, "Nothing to migrate")
			return nil
		}
		for _, name := range pending {
			fmt.Fprintln(cmd.app.stdout, "Would migrate:", name)
		}
		return nil
	}

	// If skip, then we record the migrations but do not perform them. This
	// enables you to start using this package on an existing database
	if cmd.Skip != "" {
		rep, err := r.Baseline(ctx, cmd.Skip)
		if err != nil {
			return errors.Wrap(err, "skip ahead")
		}
		for _, name := range rep.Applied {
			fmt.Fprintln(cmd.app.stdout, "Skipped:", name)
		}
	}

	rep, err := r.Migrate(ctx)
	if err != nil {
		return errors.Wrap(err, "migrate")
	}
	cmd.app.report(rep, "Nothing to migrate")
	return nil
}

type rollbackCommand struct {
	app *app
}

func (cmd *rollbackCommand) Execute([]string) error {
	r, drv, err := cmd.app.runner()
	if err != nil {
		return err
	}
	defer drv.Close()
	ctx, cancel := signalContext()
	defer cancel()

	rep, err := r.Rollback(ctx)
	if err != nil {
		return errors.Wrap(err, "rollback")
	}
	cmd.app.report(rep, "Nothing to rollback")
	return nil
}

type freshCommand struct {
	app *app
}

func (cmd *freshCommand) Execute([]string) error {
	r, drv, err := cmd.app.runner()
	if err != nil {
		return err
	}
	defer drv.Close()
	ctx, cancel := signalContext()
	defer cancel()

	rep, err := r.Fresh(ctx)
	if err != nil {
		return errors.Wrap(err, "fresh")
	}
	cmd.app.report(rep, "Nothing to migrate")
	return nil
}

type statusCommand struct {
	app *app
}

func (cmd *statusCommand) Execute([]string) error {
	r, drv, err := cmd.app.runner()
	if err != nil {
		return err
	}
	defer drv.Close()
	ctx, cancel := signalContext()
	defer cancel()

	entries, err := r.Status(ctx)
	if err != nil {
		return errors.Wrap(err, "status")
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.app.stdout, "No migrations found")
		return nil
	}
	w := tabwriter.NewWriter(cmd.app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Ran?\tBatch\tMigration")
	for _, e := range entries {
		ran, batch := "No", "-"
		if e.Applied {
			ran, batch = "Yes", fmt.Sprint(e.Batch)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", ran, batch, e.Name)
	}
	return w.Flush()
}

func (a *app) report(rep *schema.Report, nothing string) {
	if rep.NothingToDo() {
		fmt.Fprintln(a.stdout, nothing)
		return
	}
	for _, name := range rep.RolledBack {
		fmt.Fprintln(a.stdout, "Rolled back:", name)
	}
	for _, name := range rep.Applied {
		fmt.Fprintln(a.stdout, "Migrated:", name)
	}
}

// Package cli implements the migrate command line on top of a migration
// registry. Programs register their migrations and hand the registry to Run.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/egtann/schema"
	"github.com/egtann/schema/connect"
	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Options are accepted by every command.
type Options struct {
	Config     string `long:"config" description:"Path to the connection config file" default:"database/config/connection.yml"`
	Connection string `long:"connection" short:"c" description:"Connection name in the config file (defaults to the file's default)"`
	AskPass    bool   `long:"ask-pass" description:"Prompt for the database password"`
	JSON       bool   `long:"json" description:"Log as JSON"`
}

type app struct {
	opts   Options
	reg    *schema.Registry
	stdout io.Writer
	stderr io.Writer

	open         func(schema.Config) (schema.Driver, error)
	readPassword func(prompt string) (string, error)
}

// Run parses args and executes the named command against the migrations in
// reg. Results go to stdout and logs to stderr.
func Run(args []string, reg *schema.Registry, stdout, stderr io.Writer) error {
	a := &app{
		reg:          reg,
		stdout:       stdout,
		stderr:       stderr,
		open:         connect.Open,
		readPassword: promptPassword(stderr),
	}
	return a.run(args)
}

func (a *app) run(args []string) error {
	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "migrate"
	cmds := []struct {
		name, short string
		data        interface{}
	}{
		{"migrate", "Run pending migrations", &migrateCommand{app: a}},
		{"migrate:rollback", "Roll back the last batch of migrations", &rollbackCommand{app: a}},
		{"migrate:fresh", "Roll back every batch and migrate again", &freshCommand{app: a}},
		{"migrate:status", "Show the status of each migration", &statusCommand{app: a}},
	}
	for _, c := range cmds {
		if _, err := parser.AddCommand(c.name, c.short, c.short, c.data); err != nil {
			return errors.Wrap(err, "add command")
		}
	}

	_, err := parser.ParseArgs(args)
	var flagErr *flags.Error
	if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
		fmt.Fprintln(a.stdout, flagErr.Message)
		return nil
	}
	return err
}

// runner loads the selected connection, confines the process, and opens the
// driver. Close the driver when done.
func (a *app) runner() (*schema.Runner, schema.Driver, error) {
	conf, err := schema.LoadConfig(a.opts.Config, a.opts.Connection)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load config")
	}

	// Request database password if asked to instead of reading it from
	// the config
	if a.opts.AskPass {
		prompt := fmt.Sprintf("%s database password: ", conf.Database)
		conf.Password, err = a.readPassword(prompt)
		if err != nil {
			return nil, nil, errors.Wrap(err, "read pass")
		}
	}

	dialect := strings.ToLower(conf.Driver)
	paths := []string{conf.SSLKey, conf.SSLCert, conf.SSLCA}
	if dialect == schema.DriverSQLite {
		paths = append(paths, conf.Database, conf.Database+"-journal",
			conf.Database+"-wal")
	}
	if err = schema.Unveil(paths); err != nil {
		return nil, nil, errors.Wrap(err, "unveil")
	}
	if err = schema.Pledge(schema.PledgePromises(dialect)); err != nil {
		return nil, nil, errors.Wrap(err, "pledge")
	}

	drv, err := a.open(conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect")
	}
	log := newLogger(a.stderr, a.opts.JSON).With().
		Str("driver", drv.Dialect()).
		Logger()
	return schema.NewRunner(drv, a.reg, zerologAdapter{log}), drv, nil
}

func promptPassword(w io.Writer) func(string) (string, error) {
	return func(prompt string) (string, error) {
		fmt.Fprint(w, prompt)
		byt, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(byt), nil
	}
}

func newLogger(w io.Writer, json bool) zerolog.Logger {
	if json {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		With().Timestamp().Logger()
}

// signalContext is cancelled on interrupt so in-flight statements stop.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

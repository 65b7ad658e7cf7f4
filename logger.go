package schema

import "fmt"

type Logger interface {
	Printf(string, ...interface{})
	Println(...interface{})
}

// StdLogger is a helper type that simply logs to stdout using fmt. Unless you
// want to structure logs or redirect them in some way, this is probably what
// you want to use in schema.NewRunner().
type StdLogger struct{}

func (l StdLogger) Printf(s string, vs ...interface{}) {
	fmt.Printf(s, vs...)
}

func (l StdLogger) Println(vs ...interface{}) {
	fmt.Println(vs...)
}

// RunLogger is a Logger that can tag everything it writes with the id of a
// single run. Runner uses it to correlate the log lines of one operation.
type RunLogger interface {
	Logger
	WithRunID(id string) Logger
}

// discard drops everything. Used when NewRunner is given a nil Logger.
type discard struct{}

func (discard) Printf(string, ...interface{}) {}
func (discard) Println(...interface{})        {}

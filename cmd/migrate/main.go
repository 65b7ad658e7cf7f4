// Command migrate runs the migrations registered in schema.DefaultRegistry.
// Applications normally build their own copy of this command with a blank
// import of their migrations package so its init functions register them.
package main

import (
	"fmt"
	"os"

	"github.com/egtann/schema"
	"github.com/egtann/schema/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	return cli.Run(os.Args[1:], schema.DefaultRegistry, os.Stdout, os.Stderr)
}

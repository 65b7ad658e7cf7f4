package schema

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Pledge to the kernel the required syscalls on OpenBSD.
func Pledge(promises string) error {
	if err := unix.Pledge(promises, ""); err != nil {
		return errors.Wrap(err, "pledge")
	}
	return nil
}

// Unveil only the config file, TLS certs and any SQLite database to the
// program.
func Unveil(paths []string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := unix.Unveil(p, "rwc"); err != nil {
			return errors.Wrapf(err, "unveil %s", p)
		}
	}
	if err := unix.UnveilBlock(); err != nil {
		return errors.Wrap(err, "unveil block")
	}
	return nil
}


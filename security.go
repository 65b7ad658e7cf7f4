//go:build !openbsd

package schema

// Pledge is only supported on OpenBSD.
func Pledge(promises string) error { return nil }

// Unveil is only supported on OpenBSD.
func Unveil(paths []string) error { return nil }


//go:build !cgo

package sqlite

const defaultDriverName = "sqlite"

func isCgoDuplicate(error) bool { return false }

package schema

// PledgePromises returns the OpenBSD promises needed to run migrations
// against the given dialect.
func PledgePromises(dialect string) string {
	// SQLite writes to a local file instead of dialing a server
	if dialect == DriverSQLite {
		return "stdio rpath wpath cpath flock"
	}
	return "stdio rpath inet dns"
}

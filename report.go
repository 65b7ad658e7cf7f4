package schema

// State of a Runner.
type State int

const (
	Idle State = iota
	Discovering
	Applying
	RollingBack
	Refreshing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Discovering:
		return "discovering"
	case Applying:
		return "applying"
	case RollingBack:
		return "rolling back"
	case Refreshing:
		return "refreshing"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Report describes what one runner invocation did.
type Report struct {
	RunID string

	// Batch is the batch number assigned to newly applied migrations, or
	// the batch that was rolled back.
	Batch int

	Applied    []string
	Skipped    []string
	RolledBack []string

	// FellBack is set when Fresh found nothing to refresh and ran a plain
	// Migrate instead.
	FellBack bool
}

// NothingToDo reports whether the run neither applied nor rolled back
// anything.
func (r *Report) NothingToDo() bool {
	return len(r.Applied) == 0 && len(r.RolledBack) == 0
}

// StatusEntry is one registered migration and where it stands.
type StatusEntry struct {
	Name    string
	Applied bool
	Batch   int
}

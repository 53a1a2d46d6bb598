package value

import "time"

// dateLayout is the single shared date format for the whole process. Every
// Date<->String conversion goes through it so round-trips stay consistent
// within one process lifetime. Set it once at startup; it is not synchronized.
var dateLayout = time.RFC3339

// SetDateFormat replaces the shared date layout. Intended to be called once
// during startup, before any conversion runs.
func SetDateFormat(layout string) {
	dateLayout = layout
}

// DateFormat returns the shared date layout.
func DateFormat() string {
	return dateLayout
}

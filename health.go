package wext

// maxSequentialErrors is the number of consecutive driver failures tolerated
// before the driver is reported as hung.
const maxSequentialErrors = 4

// health counts consecutive driver failures.
type health struct {
	errors int
}

// fail records a failure and reports whether the driver should now be
// reported as hung. The counter restarts after each report, so one report is
// made per maxSequentialErrors+1 consecutive failures.
func (h *health) fail() bool {
	h.errors++
	if h.errors > maxSequentialErrors {
		h.errors = 0
		return true
	}

	return false
}

// succeed records a success.
func (h *health) succeed() { h.errors = 0 }

package shell

import (
	"github.com/srg/blescope/internal/session"
)

// scanDoneMsg carries the result of a completed scan back to the UI goroutine
type scanDoneMsg struct {
	devices []session.DiscoveredDevice
}

// logLineMsg appends one line to the log panel
type logLineMsg struct {
	line string
}

// connectDoneMsg carries a finished connect-and-inspect attempt
type connectDoneMsg struct {
	outcome session.ConnectOutcome
	err     error
}

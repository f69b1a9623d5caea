package session

// ScanError reports a failed discovery scan
type ScanError struct {
	Err error
}

func (e *ScanError) Error() string { return e.Err.Error() }
func (e *ScanError) Unwrap() error { return e.Err }

// ConnectOp names the connect-and-inspect step that failed
type ConnectOp string

const (
	OpDial     ConnectOp = "dial"
	OpServices ConnectOp = "services"
	OpPanic    ConnectOp = "panic"
)

// ConnectError reports a failed connect-and-inspect attempt
type ConnectError struct {
	Device DiscoveredDevice
	Op     ConnectOp
	Err    error
}

func (e *ConnectError) Error() string { return e.Err.Error() }
func (e *ConnectError) Unwrap() error { return e.Err }

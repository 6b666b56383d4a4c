package repetier

// ConnectionState is the lifecycle state of a server connection. It only
// changes inside the connection's event loop.
type ConnectionState int

const (
	StateClosed ConnectionState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// UploadStatus is the published view of an upload in flight. Storing flips on
// once the body is fully sent and the server is materializing the model.
type UploadStatus struct {
	Active   bool
	FileName string
	Percent  float64
	Storing  bool
}

// Notice is a user-facing message: "saved as x.gcode", "access denied", and
// the like. Link, when set, points at the server's web interface.
type Notice struct {
	Text string
	Link string
	Err  bool
}

// Publisher receives every observable state change the connection produces.
// All methods are called from the connection's event loop, one at a time;
// implementations must not call back into the connection.
type Publisher interface {
	ConnectionStateChanged(state ConnectionState)
	StatusTextChanged(text string)
	AcceptsCommandsChanged(accepts bool)
	TemperaturesUpdated(temps Temperatures)
	JobUpdated(job JobStatus)
	UploadUpdated(upload UploadStatus)
	FrameUpdated(frame []byte)
	Notice(notice Notice)
}

package wifi

import "errors"

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a
	// Session that has no transport.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Session that
	// has already been closed, or a command is issued after Close.
	ErrAlreadyClosed = errors.New("session already closed")

	// ErrPumpRunning is returned when Pump is invoked while another Pump
	// call is still draining the transport.
	ErrPumpRunning = errors.New("pump already running")

	// ErrTimeout is returned when the terminal token of a transaction does
	// not appear within its timeout budget.
	ErrTimeout = errors.New("transaction timed out")

	// ErrFailed is returned when the modem answers a transaction with an
	// error token instead of the expected terminal. Callers route it
	// exactly like ErrTimeout; the distinction only matters for logs.
	ErrFailed = errors.New("modem reported an error token")

	// ErrPartialParse is returned when a response carried its terminal
	// token but the typed extraction could not fill every slot. The
	// transaction itself counts as delivered; the caller decides whether
	// the missing fields make it a failure.
	ErrPartialParse = errors.New("response did not fill every slot")
)

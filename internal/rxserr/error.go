package rxserr

// HandlerError is a semantic error a server handler
// returns to have the dispatcher send an SC_B1 reply carrying Code. It
// is recoverable: the control channel stays open and the session keeps
// running.
type HandlerError struct {
	Code Errno
}

func (e *HandlerError) Error() string {
	return e.Code.Client().String()
}

// Handler wraps a client-side Errno into a HandlerError.
func Handler(code Errno) *HandlerError {
	return &HandlerError{Code: code.Client()}
}

// HandlerFromError maps a Go error from an OS call to a HandlerError,
// preferring the precise errno when available.
func HandlerFromError(err error) *HandlerError {
	return Handler(FromError(err))
}

package wisp

import "errors"

var (
	// ErrStreamClosed is returned when writing to a stream after Close.
	ErrStreamClosed = errors.New("write on closed stream")
	// ErrStreamAborted is returned by reads on a stream that was reset.
	ErrStreamAborted = errors.New("stream aborted")
	// ErrReadTimeout is returned when a blocking read exceeds the configured timeout.
	ErrReadTimeout = errors.New("read timed out")
	// ErrConnectionClosed is returned when submitting data after the send path shut down.
	ErrConnectionClosed = errors.New("connection closed")
)

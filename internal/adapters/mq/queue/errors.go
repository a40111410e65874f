package queue

import "errors"

// ErrClosed is returned when pushing to a closed queue.
var ErrClosed = errors.New("queue closed")

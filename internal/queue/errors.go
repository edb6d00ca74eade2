package queue

import "errors"

// ErrUnknownBackend indicates the configured storage backend is not supported.
var ErrUnknownBackend = errors.New("unknown storage backend")

// ErrBadQueueName indicates a queue name that cannot back a table name.
var ErrBadQueueName = errors.New("invalid queue name")

// ErrNoPayloads indicates a put call with nothing to append.
var ErrNoPayloads = errors.New("no payloads")

// ErrBadLimit indicates a non-positive batch limit.
var ErrBadLimit = errors.New("limit must be positive")

package app

import "errors"

// ErrConfig marks failures that happen before any job starts: unreadable or
// invalid job files, and graph validation errors.
var ErrConfig = errors.New("configuration error")

package application

import "errors"

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")
var ErrBadRequest = errors.New("bad request")

// ErrCacheMiss is returned by a CacheBackend when no record exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// ErrNoHistory is returned when neither upstream nor cache could produce a history series.
var ErrNoHistory = errors.New("no history available")

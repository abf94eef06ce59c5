package domain

import "errors"

var (
	ErrNoData       = errors.New("no data available")
	ErrCorruptEntry = errors.New("corrupt cache entry")
)

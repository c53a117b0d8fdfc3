package models

import "errors"

// ErrAlreadyExists is returned by stores when a write-once row is already present.
var ErrAlreadyExists = errors.New("record already exists")

var ErrNotFound = errors.New("record not found")

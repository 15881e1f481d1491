package sim

import "errors"

var (
	ErrVisitorNotFound   = errors.New("visitor not found")
	ErrProfileNotFound   = errors.New("visitor profile not found")
	ErrUnknownSpawnPoint = errors.New("unknown spawn point")
)

package gridbody

import "errors"

var (
	// ErrNoGround is returned when a solver or world is built without a ground collaborator.
	ErrNoGround = errors.New("gridbody: ground collaborator is required")

	ErrInvalidStamp  = errors.New("gridbody: invalid stamp")
	ErrInvalidConfig = errors.New("gridbody: invalid config")
)

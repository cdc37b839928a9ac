package match

import "errors"

var (
	ErrInvalidParam = errors.New("the param is invalid")
	ErrInternal     = errors.New("internal server error")
	ErrTimeout      = errors.New("timeout")
	ErrShutdown     = errors.New("engine is shutting down")
	ErrNotFound     = errors.New("not found")
)

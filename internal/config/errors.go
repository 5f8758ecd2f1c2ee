package config

import "fmt"

// Error is a configuration mistake made by the caller. Operations that
// return it must not be retried.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func Errorf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

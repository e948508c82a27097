package operators

import (
	"errors"
	"fmt"
)

// Fatal error kinds. Everything here aborts the run; main maps any of them
// to exit code 1.
var (
	ErrParse  = errors.New("geometry parse error")
	ErrSchema = errors.New("schema error")
	ErrIndex  = errors.New("index error")
	ErrCache  = errors.New("cache file error")
	ErrConfig = errors.New("query operator error")
)

var (
	ErrWrongSID = func(sid string) error {
		return fmt.Errorf("%w: wrong sid %q", ErrSchema, sid)
	}
	ErrMissingField = func(pos, have int) error {
		return fmt.Errorf("%w: field position %d out of range (record has %d fields)", ErrSchema, pos, have)
	}
	ErrBadWKT = func(err error) error {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	ErrInvalidIndex = func(info string) error {
		return fmt.Errorf("%w: %s", ErrIndex, info)
	}
	ErrBadOperator = func(info string) error {
		return fmt.Errorf("%w: %s", ErrConfig, info)
	}
	ErrBadCache = func(info string) error {
		return fmt.Errorf("%w: %s", ErrCache, info)
	}
)

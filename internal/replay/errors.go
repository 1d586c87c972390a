package replay

import "errors"

// ErrInvalidOrdering is returned when a series is not strictly ascending by timestamp.
var ErrInvalidOrdering = errors.New("series is not in strictly ascending timestamp order")

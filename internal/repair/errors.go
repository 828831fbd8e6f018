package repair

import "errors"

// ErrNeedTerminal is returned when interactive repair is requested without a terminal
var ErrNeedTerminal = errors.New("need terminal for interactive repairs")

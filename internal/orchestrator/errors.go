package orchestrator

import "errors"

var errUnknownMove = errors.New("orchestrator: unknown move value")

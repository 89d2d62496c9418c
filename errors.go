package apegears

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Parse and the adders. Callers are expected to
// test for them with errors.Is; MustParse translates them into exit codes.
var (
	// ErrHelp is returned by Parse when -h/--help was requested.
	ErrHelp = errors.New("help requested")

	// ErrConfig reports an invalid argument definition at registration time.
	ErrConfig = errors.New("invalid argument definition")

	// ErrRequired prefixes the aggregated error for arguments that are
	// required but were not supplied, or accumulated no values.
	ErrRequired = errors.New("the following arguments are required")
)

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

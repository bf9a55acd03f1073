package setup

import (
	"errors"
	"fmt"
	"os"
)

var errNotElevated = errors.New("system-wide installation requires elevated privileges")

// elevationError wraps errNotElevated with a platform-specific rerun hint.
func elevationError(hint, prefix string) error {
	return fmt.Errorf("%w\n\n%s\n  %s%s --setup --mode system", errNotElevated, hint, prefix, os.Args[0])
}

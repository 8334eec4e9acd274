package expression

import "errors"

// ErrUnbalancedBraces is returned by Scan when a "{{" is never closed.
var ErrUnbalancedBraces = errors.New("unbalanced expression braces")

// errorMarker formats an evaluation failure the way the safety contract
// requires: inline, never as a propagated error.
func errorMarker(msg string) string {
	return "[Expression Error: " + msg + "]"
}

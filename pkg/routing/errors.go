package routing

import (
	"errors"
	"fmt"
)

// ErrRouteNotFound is returned when no rule matches a proxied path.
var ErrRouteNotFound = errors.New("route not found")

// RouteNotFoundError carries the path that failed to match.
type RouteNotFoundError struct {
	// Path is the request path.
	Path string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route for path %q", e.Path)
}

// Is implements error matching for errors.Is().
func (e *RouteNotFoundError) Is(target error) bool {
	return target == ErrRouteNotFound
}

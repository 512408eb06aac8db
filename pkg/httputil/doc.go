// Package httputil provides the outer HTTP plumbing shared by all
// endpoints: JSON response helpers and the request ID, logging and
// recovery middleware.
package httputil

// Package middleware provides the gin middleware shared by every route:
// request logging and Prometheus request metrics.
package middleware

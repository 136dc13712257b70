// Package api wires HTTP routes to the service layer.
//
// Handlers live in the handlers subpackage. They translate requests into
// service calls and service results back into JSON responses.
package api

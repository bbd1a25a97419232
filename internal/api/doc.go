// Package api handles incoming HTTP requests and response formatting for the
// activity logger backend: the root info endpoint, liveness and readiness
// checks.
package api

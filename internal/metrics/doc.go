// Package metrics defines the Prometheus collectors exported by the service
// and the handler that serves them.
//
// Collectors live on an explicit registry rather than the global default so
// tests can build independent instances.
package metrics

// Package observability provides the structured logger and the Prometheus
// collectors for the request gate and the JWKS key resolver.
//
// Metrics are registered on an injected registry so tests and the
// /metrics endpoint can each use their own.
package observability

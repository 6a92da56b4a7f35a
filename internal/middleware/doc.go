// Package middleware provides HTTP middleware for the converter API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Request id propagation through X-Request-ID
//   - Prometheus request metrics labelled by route template
package middleware

// Package routes provides the two ways a Host builds its domain.Table:
// an in-memory builder for routes registered directly in code, and a
// filesystem loader (routesDirectory, spec.md §6) backed by
// github.com/aretw0/loam for hosts that declare routes as front-matter
// documents.
package routes

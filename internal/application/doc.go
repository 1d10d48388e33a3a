// Package application provides application initialization and dependency wiring.
// It turns the service configuration into an overlay stack (roots, overlays,
// secret store), builds the finder and its cache, the HTTP handlers and
// router, and the HTTP server, keeping the main package focused on CLI
// parsing and orchestration.
package application

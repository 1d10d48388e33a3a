// Package secrets provides secret-store backends for secret overlays: an
// in-memory store, a HashiCorp Vault client speaking the logical HTTP API, a
// SQLite-backed store, and a rate-limited decorator for any of them.
package secrets

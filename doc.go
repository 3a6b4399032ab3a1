// Package backend provides the Gatherly API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/resolve: Discriminated reference resolution
// - internal/reactions: Reaction ledger (one reaction per account per target)
// - internal/cascade: Cascading deletes across reply trees and references
// - internal/auth: Authentication for users and professionals
// - internal/websocket: WebSocket server for real-time push and presence
// - internal/notify: Post-commit notification push dispatch
// - internal/storage: File storage (S3) operations
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (request ids, logging, metrics)

// See the individual package documentation for detailed API reference.
package backend

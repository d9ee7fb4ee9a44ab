// Package driving provides interfaces for primary/inbound ports.
// Core services implement them; adapters under internal/adapters/driving
// (CLI, MCP) call them.
package driving

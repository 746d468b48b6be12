// Package engine is the composition root that assembles the search assistant
// from configuration and exposes it through a frontend-agnostic API.
// Frontends (TUI, HTTP, MCP) interact with Engine and Session types, observe
// activity through an EventBus, and never wire providers themselves.
package engine

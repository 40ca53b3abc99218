// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports). The core depends only on these contracts,
// never on a specific provider's transport.
package driven

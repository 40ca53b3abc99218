// Package driving provides interfaces for external actors invoking the
// core (primary/inbound ports).
package driving

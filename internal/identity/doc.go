// Package identity maintains the egress identity pool: a rotating set of
// validated proxy endpoints plus randomized client header profiles, handed
// out one per browser session.
package identity

// Package crawl implements the resilient crawl orchestrator: it turns a page
// range into a stream of extracted auction listings while coordinating a
// bounded worker pool, rotating egress identities, retrying transient
// failures, and flushing partial progress after every batch.
package crawl

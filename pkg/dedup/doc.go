// Package dedup provides Redis-backed webhook delivery deduplication keyed
// by provider event id.
package dedup

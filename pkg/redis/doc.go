// Package redis provides Redis connection helpers shared by the caching,
// deduplication, and status-feed packages.
package redis

// Package statusfeed publishes downstream subscription status records over
// Redis pub/sub.
package statusfeed

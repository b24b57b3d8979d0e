// Package custcache invalidates the Redis-cached provider-customer
// projection for an account.
package custcache

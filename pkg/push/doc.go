// Package push delivers device notifications through an HTTP push gateway
// with HMAC-signed payloads.
package push

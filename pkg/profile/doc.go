// Package profile is a client for the profile microservice's internal cache
// invalidation endpoint.
package profile

// Package accountdb implements the account store on PostgreSQL via pgx.
//
// It resolves local account bindings for provider customers, maintains the
// customer binding written on customer.created events, and lists
// push-registered devices. Schema migrations are embedded and applied with
// goose.
package accountdb

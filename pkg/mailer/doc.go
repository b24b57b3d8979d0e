// Package mailer sends subscription lifecycle emails through Postmark.
//
// One method per template variant keeps the "exactly one email per event"
// contract visible in the type system. Postmark's inactive-recipient error
// is surfaced as reconcile.ErrBouncedEmail so the webhook guard can swallow
// it instead of triggering provider retries that can never succeed.
package mailer

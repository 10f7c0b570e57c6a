// Package accounts is the account lifecycle and authentication core of a
// user management service: registration, credential verification with a
// lockout policy, the email verification workflow, role and professional
// status escalation, and password reset.
//
// Store gateway:
//   - Every read and mutation runs through StoreGateway, which wraps one
//     logical query in a transaction and retries transient storage failures
//     exactly once after a backoff. Exhausted retries and non-transient
//     failures are absorbed there, so the manager treats "no result"
//     uniformly as "the operation did not happen".
//
// Lifecycle manager:
//   - AccountManager holds the invariants: unique nickname and email, the
//     first-account admin promotion, the failed-login counter and lock
//     threshold, and single-use verification tokens. Operations return the
//     domain value or an absence/false sentinel; storage error types never
//     reach callers.
//
// Notification dispatch:
//   - Specific transitions (verification pending, lockout, unlock, role and
//     professional upgrades) hand a Job to a Dispatcher, fire-and-forget.
//     RedisDispatcher appends jobs to a stream the notify worker consumes
//     at-least-once; swap in DispatcherFunc or a recorder for tests.
package accounts

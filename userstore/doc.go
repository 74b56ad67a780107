// Package userstore persists platform accounts: clients who register through
// the web console or mobile app and the staff who approve them.
//
// [MemoryStore] serves tests and single-process development runs;
// [PostgresStore] is the production store on a pgx pool. Both normalize
// e-mail addresses to lower case and enforce their uniqueness.
package userstore

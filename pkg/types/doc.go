// Package types defines the syncable entity model shared by the store, the
// sync engine and the remote transport: entity kinds, the sync metadata every
// entity carries, the wire record envelope, and the standard errors.
package types

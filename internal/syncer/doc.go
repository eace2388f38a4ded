// Package syncer reconciles the local store with a remote authority.
//
// Push sends every dirty entity in local_updated_at order and clears the
// dirty flag only when the row is unchanged since it was read. Pull reads
// the remote's change feed after the stored watermark, a position the
// remote assigns on acceptance, applies records parents first, and resolves
// conflicts with dirty rows by last-writer-wins with tombstone dominance. The watermark advances only past records that were
// applied, so a failed or cancelled pull is retried from where it stopped.
//
// A Runner drives cycles from a cron schedule, from local change hooks and
// from file system events in the data directory.
package syncer

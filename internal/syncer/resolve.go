package syncer

import "time"

// Winner names the side a conflict resolution keeps.
type Winner int

const (
	KeepLocal Winner = iota
	TakeRemote
)

func (w Winner) String() string {
	if w == TakeRemote {
		return "remote"
	}
	return "local"
}

// Version is the part of an entity version that conflict resolution reads.
// For the local side At is local_updated_at; for the remote side it is the
// remote updated_at.
type Version struct {
	At      time.Time
	Deleted bool
}

// Resolve decides between a dirty local version and an incoming remote
// version. The later timestamp wins and ties keep local. When exactly one
// side is a tombstone, the tombstone wins unless the live side is strictly
// later. A zero timestamp on either side yields a ConflictError and local
// is kept.
func Resolve(local, remote Version) (Winner, error) {
	if local.At.IsZero() || remote.At.IsZero() {
		return KeepLocal, &ConflictError{Local: local.At, Remote: remote.At, Reason: "missing timestamp"}
	}
	switch {
	case local.Deleted && !remote.Deleted:
		if remote.At.After(local.At) {
			return TakeRemote, nil
		}
		return KeepLocal, nil
	case remote.Deleted && !local.Deleted:
		if local.At.After(remote.At) {
			return KeepLocal, nil
		}
		return TakeRemote, nil
	}
	if remote.At.After(local.At) {
		return TakeRemote, nil
	}
	return KeepLocal, nil
}

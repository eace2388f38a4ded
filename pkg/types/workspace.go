package types

// Workspace groups lists, tags and habits for one owner.
type Workspace struct {
	SyncMeta `json:"-"`
	OwnerID  string `json:"owner_id"`
	Name     string `json:"name"`
}

func (*Workspace) Kind() Kind { return KindWorkspace }

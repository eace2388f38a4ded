package types

// List is an ordered container of tasks. Each workspace has exactly one
// default list, which receives the tasks of deleted lists.
type List struct {
	SyncMeta    `json:"-"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Ord         int    `json:"ord"`
	IsDefault   bool   `json:"is_default"`
}

func (*List) Kind() Kind { return KindList }

// ListPatch carries the fields to change on a list. Nil fields are left as is.
type ListPatch struct {
	Name  *string
	Color *string
	Ord   *int
}

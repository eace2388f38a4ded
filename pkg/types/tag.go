package types

// Tag labels tasks. Names are unique per workspace among live tags.
type Tag struct {
	SyncMeta    `json:"-"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
}

func (*Tag) Kind() Kind { return KindTag }

// TagPatch carries the fields to change on a tag.
type TagPatch struct {
	Name  *string
	Color *string
}

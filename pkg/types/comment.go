package types

// Comment is a note attached to a task.
type Comment struct {
	SyncMeta `json:"-"`
	TaskID   string `json:"task_id"`
	AuthorID string `json:"author_id"`
	Body     string `json:"body"`
}

func (*Comment) Kind() Kind { return KindComment }

// Attachment references a file attached to a task. Only metadata is synced.
type Attachment struct {
	SyncMeta  `json:"-"`
	TaskID    string `json:"task_id"`
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"file_size_bytes"`
}

func (*Attachment) Kind() Kind { return KindAttachment }

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/cling/pkg/types"
)

func init() {
	register(&table{
		kind:    types.KindComment,
		columns: []string{"task_id", "author_id", "body"},
		values: func(e types.Entity) []any {
			c := e.(*types.Comment)
			return []any{c.TaskID, c.AuthorID, c.Body}
		},
		dest: func(e types.Entity) []any {
			c := e.(*types.Comment)
			return []any{&c.TaskID, &c.AuthorID, &c.Body}
		},
	})
	register(&table{
		kind:    types.KindAttachment,
		columns: []string{"task_id", "file_path", "file_name", "mime_type", "file_size_bytes"},
		values: func(e types.Entity) []any {
			a := e.(*types.Attachment)
			return []any{a.TaskID, a.FilePath, a.FileName, nullString(a.MimeType), a.SizeBytes}
		},
		dest: func(e types.Entity) []any {
			a := e.(*types.Attachment)
			return []any{&a.TaskID, &a.FilePath, &a.FileName, nullStringCol{&a.MimeType}, &a.SizeBytes}
		},
	})
}

// AddComment adds a comment to a live task.
func (s *Store) AddComment(ctx context.Context, taskID, authorID, body string) (*types.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, types.ErrInvalidContent
	}
	c := &types.Comment{TaskID: taskID, AuthorID: authorID, Body: body}
	err := s.write(ctx, func(tx *Store) error {
		if _, err := tx.GetTask(ctx, taskID); err != nil {
			return fmt.Errorf("task %s: %w", taskID, err)
		}
		return tx.create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments returns the live comments on a task, oldest first.
func (s *Store) ListComments(ctx context.Context, taskID string) ([]*types.Comment, error) {
	return fetchAll[*types.Comment](ctx, s, types.KindComment,
		"deleted_at IS NULL AND task_id = ?", "created_at, id", taskID)
}

// UpdateComment replaces a comment body.
func (s *Store) UpdateComment(ctx context.Context, id, body string) (*types.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, types.ErrInvalidContent
	}
	e, err := s.modify(ctx, types.KindComment, id, func(e types.Entity) error {
		e.(*types.Comment).Body = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.(*types.Comment), nil
}

// DeleteComment tombstones a comment.
func (s *Store) DeleteComment(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, types.KindComment, id)
}

// AddAttachment records file metadata against a live task.
func (s *Store) AddAttachment(ctx context.Context, a *types.Attachment) (*types.Attachment, error) {
	if a.FilePath == "" {
		return nil, types.ErrInvalidContent
	}
	if a.FileName == "" {
		i := strings.LastIndexAny(a.FilePath, `/\`)
		a.FileName = a.FilePath[i+1:]
	}
	if a.SizeBytes < 0 {
		return nil, types.ErrInvalidData
	}
	err := s.write(ctx, func(tx *Store) error {
		if _, err := tx.GetTask(ctx, a.TaskID); err != nil {
			return fmt.Errorf("task %s: %w", a.TaskID, err)
		}
		return tx.create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAttachments returns the live attachments of a task, newest first.
func (s *Store) ListAttachments(ctx context.Context, taskID string) ([]*types.Attachment, error) {
	return fetchAll[*types.Attachment](ctx, s, types.KindAttachment,
		"deleted_at IS NULL AND task_id = ?", "created_at DESC, id", taskID)
}

// DeleteAttachment tombstones an attachment.
func (s *Store) DeleteAttachment(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, types.KindAttachment, id)
}

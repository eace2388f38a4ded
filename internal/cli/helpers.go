package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/cling/internal/store"
	"github.com/mesh-intelligence/cling/pkg/types"
)

// timeLayouts are the accepted forms of time flags, tried in order.
var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", types.DayLayout}

// parseTimeFlag parses a time flag in local time.
func parseTimeFlag(name, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --%s %q (use YYYY-MM-DD, \"YYYY-MM-DD HH:MM\" or RFC 3339)", name, v)
}

// findList resolves a list by id or, within the workspace, by name.
func findList(ctx context.Context, s *store.Store, workspaceID, ref string) (*types.List, error) {
	if l, err := s.GetList(ctx, ref); err == nil {
		return l, nil
	} else if !errors.Is(err, types.ErrNotFound) && !errors.Is(err, types.ErrInvalidID) {
		return nil, err
	}
	lists, err := s.ListLists(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		if strings.EqualFold(l.Name, ref) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("list %q: %w", ref, types.ErrNotFound)
}

// resolveTags returns the ids of the named tags, creating missing ones.
func resolveTags(ctx context.Context, s *store.Store, workspaceID string, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimPrefix(strings.TrimSpace(name), "#")
		if name == "" {
			continue
		}
		t, err := s.UpsertTag(ctx, workspaceID, strings.ToLower(name), "")
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", name, err)
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// tagNames maps tag ids to names for display; unknown ids are skipped.
func tagNames(ctx context.Context, s *store.Store, workspaceID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tags, err := s.ListTags(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(tags))
	for _, t := range tags {
		byID[t.ID] = t.Name
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			names = append(names, n)
		}
	}
	return names, nil
}

// notFound reports a missing entity by kind and id.
func notFound(kind types.Kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, types.ErrNotFound)
}

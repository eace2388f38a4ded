// Package seed populates an empty store with first-run sample data. The
// content is an embedded YAML document; seeding runs only while the tasks
// table is empty and happens in a single transaction.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/cling/internal/store"
	"github.com/mesh-intelligence/cling/pkg/types"
)

//go:embed seed.yaml
var defaultYAML []byte

// Document is the seed content.
type Document struct {
	Workspace WorkspaceSeed `yaml:"workspace"`
	Tags      []TagSeed     `yaml:"tags"`
	Lists     []ListSeed    `yaml:"lists"`
	Tasks     []TaskSeed    `yaml:"tasks"`
	Habits    []HabitSeed   `yaml:"habits"`
	Focus     []FocusSeed   `yaml:"focus"`
}

type WorkspaceSeed struct {
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`
}

type TagSeed struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type ListSeed struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// TaskSeed offsets are relative to the seeding time; nil means unset.
type TaskSeed struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	List        string         `yaml:"list"`
	Priority    int            `yaml:"priority"`
	Start       *time.Duration `yaml:"start"`
	End         *time.Duration `yaml:"end"`
	Status      string         `yaml:"status"`
	Tags        []string       `yaml:"tags"`
}

// HabitSeed Streak is the number of consecutive days, ending today, that
// get a backfilled log.
type HabitSeed struct {
	Title    string         `yaml:"title"`
	Schedule types.Schedule `yaml:"schedule"`
	Streak   int            `yaml:"streak"`
}

type FocusSeed struct {
	Duration time.Duration `yaml:"duration"`
	Started  time.Duration `yaml:"started"`
	Break    bool          `yaml:"break"`
}

// Parse decodes a seed document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing seed document: %w", err)
	}
	if doc.Workspace.Name == "" {
		return nil, fmt.Errorf("parsing seed document: %w", types.ErrInvalidName)
	}
	return &doc, nil
}

// Default returns the embedded seed document.
func Default() (*Document, error) { return Parse(defaultYAML) }

// Loader seeds a store.
type Loader struct {
	doc    *Document
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithDocument replaces the embedded document.
func WithDocument(doc *Document) Option { return func(l *Loader) { l.doc = doc } }

// WithClock sets the reference time for offsets and habit backfill.
func WithClock(now func() time.Time) Option { return func(l *Loader) { l.now = now } }

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader returns a Loader using the embedded document unless overridden.
func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{now: time.Now, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(l)
	}
	if l.doc == nil {
		doc, err := Default()
		if err != nil {
			return nil, err
		}
		l.doc = doc
	}
	return l, nil
}

// Run seeds s if it holds no tasks and reports whether it did.
func (l *Loader) Run(ctx context.Context, s *store.Store) (bool, error) {
	n, err := s.CountTasks(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := s.InTx(ctx, func(tx *store.Store) error { return l.apply(ctx, tx) }); err != nil {
		return false, fmt.Errorf("seeding: %w", err)
	}
	l.logger.Info("store seeded",
		"tasks", len(l.doc.Tasks), "lists", len(l.doc.Lists), "habits", len(l.doc.Habits))
	return true, nil
}

func (l *Loader) apply(ctx context.Context, tx *store.Store) error {
	now := l.now().UTC()
	doc := l.doc

	ws, err := tx.CreateWorkspace(ctx, doc.Workspace.Name, doc.Workspace.Owner)
	if err != nil {
		return fmt.Errorf("seeding workspace: %w", err)
	}

	tagIDs := make(map[string]string, len(doc.Tags))
	for _, ts := range doc.Tags {
		tag, err := tx.CreateTag(ctx, ws.ID, ts.Name, ts.Color)
		if err != nil {
			return fmt.Errorf("seeding tag %s: %w", ts.Name, err)
		}
		tagIDs[ts.Name] = tag.ID
	}

	// The first list becomes the workspace default.
	listIDs := make(map[string]string, len(doc.Lists))
	for _, ls := range doc.Lists {
		list, err := tx.CreateList(ctx, &types.List{WorkspaceID: ws.ID, Name: ls.Name, Color: ls.Color})
		if err != nil {
			return fmt.Errorf("seeding list %s: %w", ls.Name, err)
		}
		listIDs[ls.Name] = list.ID
	}

	for _, ts := range doc.Tasks {
		task := &types.Task{
			Title:       ts.Title,
			Description: ts.Description,
			Priority:    ts.Priority,
			Status:      ts.Status,
			StartAt:     offset(now, ts.Start),
			EndAt:       offset(now, ts.End),
		}
		if ts.List != "" {
			id, ok := listIDs[ts.List]
			if !ok {
				return fmt.Errorf("seeding task %s: unknown list %q", ts.Title, ts.List)
			}
			task.ListID = id
		}
		for _, name := range ts.Tags {
			id, ok := tagIDs[name]
			if !ok {
				return fmt.Errorf("seeding task %s: unknown tag %q", ts.Title, name)
			}
			task.TagIDs = append(task.TagIDs, id)
		}
		if _, err := tx.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("seeding task %s: %w", ts.Title, err)
		}
	}

	for _, hs := range doc.Habits {
		h, err := tx.CreateHabit(ctx, &types.Habit{WorkspaceID: ws.ID, Title: hs.Title, Schedule: hs.Schedule})
		if err != nil {
			return fmt.Errorf("seeding habit %s: %w", hs.Title, err)
		}
		for i := 0; i < hs.Streak; i++ {
			day := types.Day(now.AddDate(0, 0, -i))
			if _, err := tx.LogHabit(ctx, h.ID, day, 1); err != nil {
				return fmt.Errorf("seeding habit log %s %s: %w", hs.Title, day, err)
			}
		}
	}

	for _, fs := range doc.Focus {
		f, err := tx.StartFocus(ctx, &types.FocusSession{
			StartedAt:   now.Add(fs.Started),
			DurationSec: int(fs.Duration / time.Second),
			IsBreak:     fs.Break,
		})
		if err != nil {
			return fmt.Errorf("seeding focus session: %w", err)
		}
		if _, err := tx.StopFocus(ctx, f.ID); err != nil {
			return fmt.Errorf("seeding focus session: %w", err)
		}
	}
	return nil
}

func offset(now time.Time, d *time.Duration) *time.Time {
	if d == nil {
		return nil
	}
	t := now.Add(*d)
	return &t
}

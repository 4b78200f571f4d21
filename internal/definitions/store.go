package definitions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agentsmith/internal/db"

	"github.com/google/uuid"
)

// Store persists definitions in SQLite.
type Store struct {
	q       *db.Queries
	hasTool func(string) bool
	now     func() time.Time
}

// NewStore validates tool names with hasTool on every write.
func NewStore(database *db.DB, hasTool func(string) bool) *Store {
	return &Store{
		q:       db.New(database.Conn()),
		hasTool: hasTool,
		now:     time.Now,
	}
}

func (s *Store) Create(ctx context.Context, d Definition) (*Definition, error) {
	d = d.Normalize()
	if err := d.Validate(s.hasTool); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	d.ID = uuid.NewString()
	d.CreatedAt = now
	d.UpdatedAt = now

	row, err := toRow(d)
	if err != nil {
		return nil, err
	}
	if err := s.q.InsertDefinition(ctx, row); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, d.Name)
		}
		return nil, fmt.Errorf("inserting definition: %w", err)
	}
	slog.Info("definitions: created", "id", d.ID, "name", d.Name, "tools", d.Tools)
	return &d, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Definition, error) {
	row, err := s.q.GetDefinition(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return fromRow(row)
}

func (s *Store) GetByName(ctx context.Context, name string) (*Definition, error) {
	row, err := s.q.GetDefinitionByName(ctx, name)
	if err != nil {
		return nil, notFound(err, name)
	}
	return fromRow(row)
}

// List returns every definition, oldest first.
func (s *Store) List(ctx context.Context) ([]*Definition, error) {
	rows, err := s.q.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing definitions: %w", err)
	}
	out := make([]*Definition, 0, len(rows))
	for _, row := range rows {
		d, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Update replaces the editable fields of the definition with the given id.
func (s *Store) Update(ctx context.Context, id string, d Definition) (*Definition, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	d = d.Normalize()
	if err := d.Validate(s.hasTool); err != nil {
		return nil, err
	}
	d.ID = id
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	row, err := toRow(d)
	if err != nil {
		return nil, err
	}
	n, err := s.q.UpdateDefinition(ctx, row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, d.Name)
		}
		return nil, fmt.Errorf("updating definition: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	slog.Info("definitions: updated", "id", id, "name", d.Name)
	return &d, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.q.DeleteDefinition(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting definition: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	slog.Info("definitions: deleted", "id", id)
	return nil
}

func notFound(err error, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("loading definition %s: %w", key, err)
}

func toRow(d Definition) (db.AgentDefinition, error) {
	tools, err := json.Marshal(d.Tools)
	if err != nil {
		return db.AgentDefinition{}, fmt.Errorf("encoding tools: %w", err)
	}
	handoffs, err := json.Marshal(d.Handoffs)
	if err != nil {
		return db.AgentDefinition{}, fmt.Errorf("encoding handoffs: %w", err)
	}
	voice, err := json.Marshal(d.Voice)
	if err != nil {
		return db.AgentDefinition{}, fmt.Errorf("encoding voice: %w", err)
	}
	return db.AgentDefinition{
		ID:           d.ID,
		Name:         d.Name,
		Instructions: d.Instructions,
		Model:        d.Model,
		Tools:        string(tools),
		Handoffs:     string(handoffs),
		Voice:        string(voice),
		CreatedAt:    d.CreatedAt.UnixMilli(),
		UpdatedAt:    d.UpdatedAt.UnixMilli(),
	}, nil
}

func fromRow(row db.AgentDefinition) (*Definition, error) {
	d := &Definition{
		ID:           row.ID,
		Name:         row.Name,
		Instructions: row.Instructions,
		Model:        row.Model,
		CreatedAt:    time.UnixMilli(row.CreatedAt).UTC(),
		UpdatedAt:    time.UnixMilli(row.UpdatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Tools), &d.Tools); err != nil {
		return nil, fmt.Errorf("definition %s: decoding tools: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Handoffs), &d.Handoffs); err != nil {
		return nil, fmt.Errorf("definition %s: decoding handoffs: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Voice), &d.Voice); err != nil {
		return nil, fmt.Errorf("definition %s: decoding voice: %w", row.ID, err)
	}
	return d, nil
}

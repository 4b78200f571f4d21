package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// AgentDefinition is a row of agent_definitions. List columns and voice
// settings are stored as JSON text.
type AgentDefinition struct {
	ID           string
	Name         string
	Instructions string
	Model        string
	Tools        string
	Handoffs     string
	Voice        string
	CreatedAt    int64
	UpdatedAt    int64
}

const definitionColumns = `id, name, instructions, model, tools, handoffs, voice, created_at, updated_at`

func scanDefinition(row interface{ Scan(...any) error }) (AgentDefinition, error) {
	var d AgentDefinition
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Instructions,
		&d.Model,
		&d.Tools,
		&d.Handoffs,
		&d.Voice,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

const insertDefinition = `INSERT INTO agent_definitions (` + definitionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertDefinition(ctx context.Context, d AgentDefinition) error {
	_, err := q.db.ExecContext(ctx, insertDefinition,
		d.ID,
		d.Name,
		d.Instructions,
		d.Model,
		d.Tools,
		d.Handoffs,
		d.Voice,
		d.CreatedAt,
		d.UpdatedAt,
	)
	return err
}

const getDefinition = `SELECT ` + definitionColumns + ` FROM agent_definitions WHERE id = ?`

func (q *Queries) GetDefinition(ctx context.Context, id string) (AgentDefinition, error) {
	return scanDefinition(q.db.QueryRowContext(ctx, getDefinition, id))
}

const getDefinitionByName = `SELECT ` + definitionColumns + ` FROM agent_definitions WHERE name = ?`

func (q *Queries) GetDefinitionByName(ctx context.Context, name string) (AgentDefinition, error) {
	return scanDefinition(q.db.QueryRowContext(ctx, getDefinitionByName, name))
}

const listDefinitions = `SELECT ` + definitionColumns + ` FROM agent_definitions ORDER BY created_at, id`

func (q *Queries) ListDefinitions(ctx context.Context) ([]AgentDefinition, error) {
	rows, err := q.db.QueryContext(ctx, listDefinitions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AgentDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateDefinition = `UPDATE agent_definitions
SET name = ?, instructions = ?, model = ?, tools = ?, handoffs = ?, voice = ?, updated_at = ?
WHERE id = ?`

// UpdateDefinition returns the number of rows changed.
func (q *Queries) UpdateDefinition(ctx context.Context, d AgentDefinition) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateDefinition,
		d.Name,
		d.Instructions,
		d.Model,
		d.Tools,
		d.Handoffs,
		d.Voice,
		d.UpdatedAt,
		d.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteDefinition = `DELETE FROM agent_definitions WHERE id = ?`

func (q *Queries) DeleteDefinition(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteDefinition, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "nested", "agentsmith.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate(context.Background()))
	return d
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	d := openTest(t)
	require.NoError(t, d.Migrate(context.Background()))
}

func TestDefinitionQueries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := New(openTest(t).Conn())

	row := AgentDefinition{
		ID:           "a1",
		Name:         "helper",
		Instructions: "be helpful",
		Tools:        `["fetchPage"]`,
		Handoffs:     `[]`,
		Voice:        `{}`,
		CreatedAt:    10,
		UpdatedAt:    10,
	}
	require.NoError(t, q.InsertDefinition(ctx, row))

	got, err := q.GetDefinition(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, row, got)

	byName, err := q.GetDefinitionByName(ctx, "helper")
	require.NoError(t, err)
	assert.Equal(t, "a1", byName.ID)

	dup := row
	dup.ID = "a2"
	err = q.InsertDefinition(ctx, dup)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	row.Instructions = "be brief"
	row.UpdatedAt = 20
	n, err := q.UpdateDefinition(ctx, row)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err := q.ListDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "be brief", list[0].Instructions)
	assert.EqualValues(t, 10, list[0].CreatedAt)

	n, err = q.DeleteDefinition(ctx, "a1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = q.GetDefinition(ctx, "a1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	n, err = q.DeleteDefinition(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

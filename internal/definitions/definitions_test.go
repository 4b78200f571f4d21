package definitions

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"agentsmith/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var known = []string{"webSearch", "fetchPage", "calculateROI"}

func hasTool(name string) bool { return slices.Contains(known, name) }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "defs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(context.Background()))
	return NewStore(database, hasTool)
}

func sample() Definition {
	return Definition{
		Name:         "Researcher",
		Instructions: "Find and summarize sources.",
		Model:        "gpt-4o-mini",
		Tools:        []string{"webSearch", "fetchPage"},
		Handoffs:     []string{"Writer"},
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	d := Definition{
		Name:         "  Bot ",
		Instructions: " hi ",
		Tools:        []string{" webSearch", "", "  "},
	}.Normalize()

	assert.Equal(t, "Bot", d.Name)
	assert.Equal(t, "hi", d.Instructions)
	assert.Equal(t, []string{"webSearch"}, d.Tools)
	assert.Equal(t, []string{}, d.Handoffs)
	assert.Equal(t, DefaultVoice(), d.Voice)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Definition)
		reason string
	}{
		{"ok", func(*Definition) {}, ""},
		{"missing name", func(d *Definition) { d.Name = "" }, "name is required"},
		{"missing instructions", func(d *Definition) { d.Instructions = "" }, "instructions are required"},
		{"unknown tool", func(d *Definition) { d.Tools = []string{"file_search"} }, `unknown tool "file_search"`},
		{"duplicate tool", func(d *Definition) { d.Tools = []string{"fetchPage", "fetchPage"} }, "listed twice"},
		{"self handoff", func(d *Definition) { d.Handoffs = []string{d.Name} }, "hand off to itself"},
		{"bad voice", func(d *Definition) { d.Voice.Voice = "robot" }, "voice must be one of"},
		{"speed too high", func(d *Definition) { d.Voice.Speed = 2.5 }, "speed"},
		{"speed lower bound", func(d *Definition) { d.Voice.Speed = 0.5 }, ""},
		{"pitch too low", func(d *Definition) { d.Voice.Pitch = 0.4 }, "pitch"},
		{"volume too high", func(d *Definition) { d.Voice.Volume = 1.2 }, "volume"},
		{"silence timeout", func(d *Definition) { d.Voice.SilenceTimeoutMs = 500 }, "silence timeout"},
		{"max duration", func(d *Definition) { d.Voice.MaxDurationMs = 3_600_000 }, "max duration"},
		{"tts model", func(d *Definition) { d.Voice.TTSModel = "tts-2" }, "tts model"},
		{"transport", func(d *Definition) { d.Voice.Transport = "carrier-pigeon" }, "transport"},
		{"twilio without phone", func(d *Definition) { d.Voice.Transport = "twilio" }, "phone number"},
		{"twilio with phone", func(d *Definition) {
			d.Voice.Transport = "twilio"
			d.Voice.Twilio = &Twilio{PhoneNumber: "+15550100"}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := sample().Normalize()
			tt.mutate(&d)
			err := d.Validate(hasTool)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, tt.reason)
		})
	}
}

func TestToProfile(t *testing.T) {
	t.Parallel()

	d := sample().Normalize()
	p, err := d.ToProfile(5)
	require.NoError(t, err)

	assert.Equal(t, "Researcher", p.Name())
	assert.Equal(t, 5, p.MaxSteps())
	assert.Equal(t, "gpt-4o-mini", p.Model())
	assert.Equal(t, []string{"webSearch", "fetchPage"}, p.Tools())

	prompt, err := p.SystemPrompt(map[string]any{"ignored": true})
	require.NoError(t, err)
	assert.Equal(t, "Find and summarize sources.", prompt)

	assert.Equal(t, "Writer", d.HandoffSuggestion())
	assert.Empty(t, Definition{}.HandoffSuggestion())
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return created }

	d, err := s.Create(ctx, sample())
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, created, d.CreatedAt)

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	byName, err := s.GetByName(ctx, "Researcher")
	require.NoError(t, err)
	assert.Equal(t, d.ID, byName.ID)

	updated := created.Add(time.Hour)
	s.now = func() time.Time { return updated }
	edit := sample()
	edit.Instructions = "Cite every source."
	edit.Voice = Voice{Enabled: true, Voice: "nova", Speed: 1.5, Volume: 0.5}
	u, err := s.Update(ctx, d.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, created, u.CreatedAt)
	assert.Equal(t, updated, u.UpdatedAt)
	assert.Equal(t, "nova", u.Voice.Voice)
	assert.Equal(t, 1.0, u.Voice.Pitch)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Cite every source.", list[0].Instructions)
	assert.True(t, list[0].Voice.Enabled)

	require.NoError(t, s.Delete(ctx, d.ID))
	_, err = s.Get(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, d.ID), ErrNotFound)
}

func TestStore_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Create(ctx, Definition{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.Create(ctx, sample())
	require.NoError(t, err)
	_, err = s.Create(ctx, sample())
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.Update(ctx, "missing", sample())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetByName(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := newTestStore(t).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// Package definitions stores user-configured custom agents and turns them
// into runnable profiles.
package definitions

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"agentsmith/internal/agent"
)

var (
	ErrNotFound = errors.New("agent definition not found")
	ErrInvalid  = errors.New("invalid agent definition")
	ErrConflict = errors.New("agent definition name already in use")
)

// Definition is a saved custom agent.
type Definition struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Instructions string    `json:"instructions"`
	Model        string    `json:"model,omitempty"`
	Tools        []string  `json:"tools"`
	Handoffs     []string  `json:"handoffs"`
	Voice        Voice     `json:"voice"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Voice holds the speech settings of an agent. They are stored and validated
// only; audio is handled by clients.
type Voice struct {
	Enabled               bool    `json:"enabled"`
	Voice                 string  `json:"voice"`
	Speed                 float64 `json:"speed"`
	Pitch                 float64 `json:"pitch"`
	Volume                float64 `json:"volume"`
	Language              string  `json:"language"`
	InterruptionDetection bool    `json:"interruptionDetection"`
	SilenceTimeoutMs      int     `json:"silenceTimeout"`
	MaxDurationMs         int     `json:"maxDuration"`
	TranscriptionModel    string  `json:"transcriptionModel"`
	TTSModel              string  `json:"ttsModel"`
	Transport             string  `json:"transport"`
	Twilio                *Twilio `json:"twilioConfig,omitempty"`
}

type Twilio struct {
	PhoneNumber string `json:"phoneNumber"`
	Webhook     string `json:"webhook"`
}

var (
	Voices              = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
	TranscriptionModels = []string{"whisper-1", "whisper-large-v3"}
	TTSModels           = []string{"tts-1", "tts-1-hd"}
	Transports          = []string{"websocket", "webrtc", "twilio"}
)

func DefaultVoice() Voice {
	return Voice{
		Voice:                 "alloy",
		Speed:                 1.0,
		Pitch:                 1.0,
		Volume:                0.8,
		Language:              "en-US",
		InterruptionDetection: true,
		SilenceTimeoutMs:      3000,
		MaxDurationMs:         300000,
		TranscriptionModel:    "whisper-1",
		TTSModel:              "tts-1",
		Transport:             "websocket",
	}
}

// withDefaults fills unset voice fields. A zero volume is kept when a voice
// was chosen explicitly.
func (v Voice) withDefaults() Voice {
	d := DefaultVoice()
	if v == (Voice{}) {
		return d
	}
	explicit := v.Voice != ""
	if v.Voice == "" {
		v.Voice = d.Voice
	}
	if v.Speed == 0 {
		v.Speed = d.Speed
	}
	if v.Pitch == 0 {
		v.Pitch = d.Pitch
	}
	if v.Volume == 0 && !explicit {
		v.Volume = d.Volume
	}
	if v.Language == "" {
		v.Language = d.Language
	}
	if v.SilenceTimeoutMs == 0 {
		v.SilenceTimeoutMs = d.SilenceTimeoutMs
	}
	if v.MaxDurationMs == 0 {
		v.MaxDurationMs = d.MaxDurationMs
	}
	if v.TranscriptionModel == "" {
		v.TranscriptionModel = d.TranscriptionModel
	}
	if v.TTSModel == "" {
		v.TTSModel = d.TTSModel
	}
	if v.Transport == "" {
		v.Transport = d.Transport
	}
	return v
}

// Normalize trims text fields, drops empty list entries and fills voice
// defaults.
func (d Definition) Normalize() Definition {
	d.Name = strings.TrimSpace(d.Name)
	d.Instructions = strings.TrimSpace(d.Instructions)
	d.Model = strings.TrimSpace(d.Model)
	d.Tools = compact(d.Tools)
	d.Handoffs = compact(d.Handoffs)
	d.Voice = d.Voice.withDefaults()
	return d
}

func compact(in []string) []string {
	out := []string{}
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks a normalized definition. hasTool reports whether a tool
// name is registered.
func (d Definition) Validate(hasTool func(string) bool) error {
	if d.Name == "" {
		return invalid("name is required")
	}
	if d.Instructions == "" {
		return invalid("instructions are required")
	}

	seen := make(map[string]struct{}, len(d.Tools))
	for _, t := range d.Tools {
		if _, dup := seen[t]; dup {
			return invalid("tool %q listed twice", t)
		}
		seen[t] = struct{}{}
		if !hasTool(t) {
			return invalid("unknown tool %q", t)
		}
	}
	if slices.Contains(d.Handoffs, d.Name) {
		return invalid("agent cannot hand off to itself")
	}

	return d.Voice.validate()
}

func (v Voice) validate() error {
	switch {
	case !slices.Contains(Voices, v.Voice):
		return invalid("voice must be one of %s", strings.Join(Voices, ", "))
	case v.Speed < 0.5 || v.Speed > 2.0:
		return invalid("voice speed must be between 0.5 and 2.0")
	case v.Pitch < 0.5 || v.Pitch > 2.0:
		return invalid("voice pitch must be between 0.5 and 2.0")
	case v.Volume < 0 || v.Volume > 1:
		return invalid("voice volume must be between 0 and 1")
	case v.SilenceTimeoutMs < 1000 || v.SilenceTimeoutMs > 10000:
		return invalid("silence timeout must be between 1000 and 10000 ms")
	case v.MaxDurationMs < 60000 || v.MaxDurationMs > 1800000:
		return invalid("max duration must be between 60000 and 1800000 ms")
	case !slices.Contains(TranscriptionModels, v.TranscriptionModel):
		return invalid("transcription model must be one of %s", strings.Join(TranscriptionModels, ", "))
	case !slices.Contains(TTSModels, v.TTSModel):
		return invalid("tts model must be one of %s", strings.Join(TTSModels, ", "))
	case !slices.Contains(Transports, v.Transport):
		return invalid("transport must be one of %s", strings.Join(Transports, ", "))
	case v.Transport == "twilio" && (v.Twilio == nil || v.Twilio.PhoneNumber == ""):
		return invalid("twilio transport requires a phone number")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// HandoffSuggestion returns the first configured handoff target, if any.
func (d Definition) HandoffSuggestion() string {
	if len(d.Handoffs) == 0 {
		return ""
	}
	return d.Handoffs[0]
}

// ToProfile builds the profile a custom agent runs with. The instructions are
// the system prompt verbatim.
func (d Definition) ToProfile(maxSteps int) (*agent.AgentProfile, error) {
	return agent.NewProfile(agent.ProfileConfig{
		Name:        d.Name,
		Description: "Custom agent",
		Prompt:      agent.StaticPrompt(d.Instructions),
		Tools:       d.Tools,
		MaxSteps:    maxSteps,
		Model:       d.Model,
	})
}

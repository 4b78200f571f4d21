package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// SimulatedProvider is an offline, deterministic stand-in for a completion
// API. On the first round it calls the tools whose names match the user's
// message (or the first tool when none match), filling required arguments
// from the message. Once tool results are present it answers with a summary.
type SimulatedProvider struct {
	model string
}

func NewSimulated(model string) *SimulatedProvider {
	if model == "" {
		model = "simulated"
	}
	return &SimulatedProvider{model: model}
}

func (s *SimulatedProvider) ChatStream(ctx context.Context, req Request, onToken func(string)) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = s.model
	}
	out := &Response{Model: model}

	user, results, rounds := inspectTranscript(req.Transcript)

	switch {
	case len(results) > 0:
		out.Text = summarizeResults(results)
	case rounds == 0 && len(req.Tools) > 0:
		out.ToolCalls = planToolCalls(user, req.Tools)
	default:
		out.Text = fmt.Sprintf("You said: %s", user)
	}

	if onToken != nil && out.Text != "" {
		words := strings.SplitAfter(out.Text, " ")
		for _, w := range words {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			onToken(w)
		}
	}

	prompt := int64(0)
	for _, t := range req.Transcript {
		prompt += int64(countWords(turnText(t)))
	}
	completion := int64(countWords(out.Text))
	for _, c := range out.ToolCalls {
		completion += int64(countWords(string(c.Arguments))) + 1
	}
	out.Usage = Usage{PromptUnits: prompt, CompletionUnits: completion, TotalUnits: prompt + completion}
	return out, nil
}

// inspectTranscript returns the latest user text, the tool results after the
// last assistant turn that requested tools, and the number of assistant turns.
func inspectTranscript(transcript []Turn) (string, []ToolResultTurn, int) {
	var (
		user    string
		results []ToolResultTurn
		rounds  int
	)
	for _, t := range transcript {
		switch v := t.(type) {
		case UserTurn:
			user = v.Text
			results = nil
		case AssistantTurn:
			rounds++
			results = nil
		case ToolResultTurn:
			results = append(results, v)
		}
	}
	return user, results, rounds
}

func summarizeResults(results []ToolResultTurn) string {
	var b strings.Builder
	b.WriteString("Here is what I found.")
	for _, r := range results {
		if r.IsError {
			fmt.Fprintf(&b, " %s failed: %s.", r.ToolName, r.Content)
			continue
		}
		fmt.Fprintf(&b, " %s returned %s.", r.ToolName, r.Content)
	}
	return b.String()
}

func planToolCalls(message string, tools []ToolSchema) []ToolCall {
	lower := strings.ToLower(message)

	var picked []ToolSchema
	for _, t := range tools {
		for _, w := range splitCamel(t.Name) {
			if len(w) > 3 && strings.Contains(lower, w) {
				picked = append(picked, t)
				break
			}
		}
	}
	if len(picked) == 0 {
		picked = tools[:1]
	}

	numbers := extractNumbers(message)
	calls := make([]ToolCall, 0, len(picked))
	for i, t := range picked {
		args, _ := json.Marshal(fillArguments(t.Parameters, message, lower, numbers))
		calls = append(calls, ToolCall{
			CallID:    fmt.Sprintf("call_%d_%d", 0, i),
			Name:      t.Name,
			Arguments: args,
		})
	}
	return calls
}

// fillArguments produces a value for every required property and for
// optional enums the message mentions. Numbers are consumed in order of
// appearance in the message.
func fillArguments(schema map[string]any, message, lower string, numbers []float64) map[string]any {
	args := map[string]any{}
	props, _ := schema["properties"].(map[string]any)
	for _, name := range requiredNames(schema) {
		prop, _ := props[name].(map[string]any)
		if enum, ok := prop["enum"].([]any); ok && len(enum) > 0 {
			args[name] = enum[0]
			if v, ok := mentionedEnum(enum, lower); ok {
				args[name] = v
			}
			continue
		}
		switch prop["type"] {
		case "number", "integer":
			v := 1.0
			if len(numbers) > 0 {
				v, numbers = numbers[0], numbers[1:]
			}
			if prop["type"] == "integer" {
				args[name] = int64(v)
			} else {
				args[name] = v
			}
		case "boolean":
			args[name] = false
		case "array":
			args[name] = []any{}
		case "object":
			args[name] = map[string]any{}
		default:
			args[name] = stringArgument(name, message, lower)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(props)) {
		if _, ok := args[name]; ok {
			continue
		}
		prop, _ := props[name].(map[string]any)
		if enum, ok := prop["enum"].([]any); ok {
			if v, ok := mentionedEnum(enum, lower); ok {
				args[name] = v
			}
		}
	}
	return args
}

// enumHints are words that imply an enum value the message does not name.
var enumHints = map[string][]string{
	"billing":   {"refund", "invoice", "payment", "charge", "subscription"},
	"technical": {"error", "bug", "crash", "broken", "browser", "loading"},
	"account":   {"password", "login", "profile"},
}

func mentionedEnum(enum []any, lower string) (any, bool) {
	for _, e := range enum {
		if strings.Contains(lower, strings.ToLower(fmt.Sprint(e))) {
			return e, true
		}
	}
	for _, e := range enum {
		for _, hint := range enumHints[strings.ToLower(fmt.Sprint(e))] {
			if strings.Contains(lower, hint) {
				return e, true
			}
		}
	}
	return nil, false
}

var urlRe = regexp.MustCompile(`https?://[^\s"'<>]+`)

func stringArgument(name, message, lower string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "url"):
		if u := urlRe.FindString(message); u != "" {
			return u
		}
	case strings.HasSuffix(n, "query"):
		if k := keyword(lower); k != "" {
			return k
		}
	}
	return message
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "want": true, "need": true,
	"please": true, "can": true, "you": true, "how": true, "what": true, "why": true,
	"does": true, "have": true, "about": true, "this": true, "that": true, "our": true,
	"your": true, "would": true, "like": true, "help": true, "work": true, "get": true,
}

// keyword picks a search term from the message: a word implying an enum
// value when there is one, otherwise the longest non-stop word.
func keyword(lower string) string {
	var words []string
	for _, w := range strings.Fields(lower) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if len(w) < 3 || stopWords[w] {
			continue
		}
		words = append(words, w)
	}
	for _, w := range words {
		for _, value := range slices.Sorted(maps.Keys(enumHints)) {
			for _, hint := range enumHints[value] {
				if strings.Contains(w, hint) {
					return hint
				}
			}
		}
	}
	best := ""
	for _, w := range words {
		if len(w) > len(best) {
			best = w
		}
	}
	return best
}

func requiredNames(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

var numberRe = regexp.MustCompile(`-?\d[\d,]*(\.\d+)?`)

func extractNumbers(s string) []float64 {
	var out []float64
	for _, m := range numberRe.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err == nil {
			out = append(out, v)
		}
	}
	return out
}

// splitCamel lowercases and splits an identifier such as "calculateROI"
// into "calculate" and "roi".
func splitCamel(name string) []string {
	var (
		words []string
		cur   []rune
	)
	runes := []rune(name)
	for i, r := range runes {
		boundary := unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1])))
		if r == '_' || r == '-' || boundary {
			if len(cur) > 0 {
				words = append(words, strings.ToLower(string(cur)))
				cur = cur[:0]
			}
			if r == '_' || r == '-' {
				continue
			}
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, strings.ToLower(string(cur)))
	}
	return words
}

func turnText(t Turn) string {
	switch v := t.(type) {
	case SystemTurn:
		return v.Text
	case UserTurn:
		return v.Text
	case AssistantTurn:
		return v.Text
	case ToolResultTurn:
		return v.Content
	}
	return ""
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/billlzzz10/unicornxos/internal/domain"
	"github.com/billlzzz10/unicornxos/internal/markdown"
)

const DefaultWriterModel = "claude-sonnet-4-20250514"

// DefaultPersonality is used when a chat names none
const DefaultPersonality = "creative-writer"

// Personality is a system prompt the writer chat can take on
type Personality struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"-"`
}

var personalities = map[string]Personality{
	"creative-writer": {
		ID:           "creative-writer",
		Name:         "Creative Writer",
		Description:  "A creative assistant for storytelling and writing.",
		SystemPrompt: "You are a creative writing assistant.",
	},
	"editor": {
		ID:           "editor",
		Name:         "Editor",
		Description:  "A professional editor for refining and improving text.",
		SystemPrompt: "You are a professional editor.",
	},
}

var ErrUnknownPersonality = errors.New("unknown personality")

// Personalities lists the available personalities by id
func Personalities() []Personality {
	out := make([]Personality, 0, len(personalities))
	for _, p := range personalities {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Categorization is a suggested category for a note
type Categorization struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// WriterConfig configures a Writer
type WriterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Writer handles chat and note categorization via the Anthropic API
type Writer struct {
	client anthropic.Client
	model  string
}

// NewWriter creates a Writer. The API key is required.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set: %w", ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultWriterModel
	}
	opts := []aoption.RequestOption{aoption.WithAPIKey(cfg.APIKey), aoption.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, aoption.WithBaseURL(cfg.BaseURL))
	}
	return &Writer{client: anthropic.NewClient(opts...), model: cfg.Model}, nil
}

// Chat answers the conversation in the voice of the given personality.
// Empty personality means DefaultPersonality.
func (w *Writer) Chat(ctx context.Context, personality string, history []ChatMessage) (string, error) {
	if personality == "" {
		personality = DefaultPersonality
	}
	p, ok := personalities[personality]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPersonality, personality)
	}

	msgs := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		switch m.Role {
		case "assistant":
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}
	if len(msgs) == 0 {
		return "", errors.New("chat: no messages")
	}

	return w.call(ctx, p.SystemPrompt, msgs)
}

// Categorize suggests one of domain.Categories for a note
func (w *Writer) Categorize(ctx context.Context, n domain.Note) (*Categorization, error) {
	prompt := buildCategorizePrompt(n)
	resp, err := w.call(ctx, "", []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	})
	if err != nil {
		return nil, err
	}
	return parseCategorization(resp)
}

// NoteFromMessage is a chat message restructured as a note
type NoteFromMessage struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Subtitle string   `json:"subtitle,omitempty"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
}

// Note converts the draft into a note ready to be stored. A subtitle
// becomes a heading above the content.
func (n NoteFromMessage) Note() domain.Note {
	content := n.Content
	if n.Subtitle != "" {
		content = "## " + n.Subtitle + "\n\n" + content
	}
	return domain.Note{Title: n.Title, Content: content, Category: n.Category, Status: domain.NoteDraft}
}

// DraftNote asks the model to turn an assistant message into a note
func (w *Writer) DraftNote(ctx context.Context, message string) (*NoteFromMessage, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("draft note: empty message")
	}
	resp, err := w.call(ctx, "", []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(buildDraftNotePrompt(message))),
	})
	if err != nil {
		return nil, err
	}
	return parseNoteFromMessage(resp)
}

// WithNoteContext prefixes the last user message with the given notes so
// the model can draw on them. Earlier turns are left as they are.
func WithNoteContext(history []ChatMessage, notes []domain.Note) []ChatMessage {
	if len(notes) == 0 {
		return history
	}
	last := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "assistant" {
			last = i
			break
		}
	}
	if last < 0 {
		return history
	}

	var sb strings.Builder
	sb.WriteString("Context from my notes:\n\n")
	for _, n := range notes {
		sb.WriteString("### ")
		sb.WriteString(n.Title)
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(n.Content))
		sb.WriteString("\n\n")
	}
	sb.WriteString("---\n\n")
	sb.WriteString(history[last].Content)

	out := append([]ChatMessage(nil), history...)
	out[last].Content = sb.String()
	return out
}

func (w *Writer) call(ctx context.Context, system string, msgs []anthropic.MessageParam) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(w.model),
		MaxTokens: 1024,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := w.client.Messages.New(ctx, params)
	if err != nil {
		return "", upstream("writer", err)
	}
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			return tb.Text, nil
		}
	}
	return "", fmt.Errorf("writer: empty response")
}

func buildCategorizePrompt(n domain.Note) string {
	var sb strings.Builder

	sb.WriteString("Categorize this note from a writer's project. Return JSON only.\n\n")
	sb.WriteString("Title: ")
	sb.WriteString(n.Title)
	sb.WriteString("\n\nContent:\n")
	sb.WriteString(markdown.Correct(n.Content))
	sb.WriteString("\n\nAllowed categories:\n")
	for _, c := range domain.Categories {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}

	sb.WriteString(`
Return a JSON object with this structure:
{"category": "one-of-the-allowed", "confidence": 0.9, "reason": "short explanation"}

Rules:
- Pick exactly one allowed category; use "other" when nothing fits
- Confidence is 0.0-1.0

Return ONLY the JSON, no other text.`)

	return sb.String()
}

func buildDraftNotePrompt(message string) string {
	var sb strings.Builder
	sb.WriteString("Turn this text from a writing assistant into a note. Return JSON only.\n\nText:\n")
	sb.WriteString(message)
	sb.WriteString("\n\nAllowed categories: ")
	sb.WriteString(strings.Join(domain.Categories, ", "))
	sb.WriteString(`

Return a JSON object with this structure:
{"title": "short title", "category": "one-of-the-allowed or empty", "subtitle": "optional", "content": "markdown body", "tags": ["tag"]}

Return ONLY the JSON, no other text.`)
	return sb.String()
}

func parseNoteFromMessage(resp string) (*NoteFromMessage, error) {
	resp = stripFence(resp)
	var n NoteFromMessage
	if err := json.Unmarshal([]byte(resp), &n); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}
	if !domain.ValidCategory(n.Category) {
		n.Category = ""
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return &n, nil
}

// stripFence removes the code fence models sometimes wrap JSON in
func stripFence(resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}

func parseCategorization(resp string) (*Categorization, error) {
	resp = stripFence(resp)

	var c Categorization
	if err := json.Unmarshal([]byte(resp), &c); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}
	if c.Category == "" || !domain.ValidCategory(c.Category) {
		c.Category = "other"
	}
	return &c, nil
}

package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one entry of a conversation history. Messages are identified by
// ID: merging a message whose ID is already present replaces it in place.
// After being appended to a State a message should be treated as immutable.
//
// Three kinds exist, distinguished by Content.Role:
//   - user: human input, text only
//   - assistant: text and/or zero or more FunctionCall parts
//   - tool: exactly one FunctionResponse answering an earlier call
type Message struct {
	ID        string    `json:"id"`
	Author    string    `json:"author,omitempty"`
	Content   Content   `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Metadata carries out-of-band annotations such as the error behind an
	// apology. It is never sent to a model.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewID generates a new unique identifier for messages and sessions.
func NewID() string { return uuid.NewString() }

// ContentID derives a stable ID for a message that has none, so merging the
// same message twice yields one entry. Equal messages share the ID.
func ContentID(m Message) string {
	m.ID = ""

	b, err := json.Marshal(m)
	if err != nil {
		return NewID()
	}

	return uuid.NewSHA1(uuid.NameSpaceOID, b).String()
}

func newMessage(author, role string, parts ...Part) Message {
	return Message{
		ID:        NewID(),
		Author:    author,
		Content:   Content{Role: role, Parts: parts},
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a human input message.
func NewUserMessage(text string) Message {
	return newMessage("user", RoleUser, TextPart{Text: text})
}

// NewAssistantMessage creates an assistant text message authored by author.
func NewAssistantMessage(author, text string) Message {
	return newMessage(author, RoleAssistant, TextPart{Text: text})
}

// NewFunctionCallMessage creates an assistant message carrying tool calls and
// optional accompanying text.
func NewFunctionCallMessage(author, text string, calls ...FunctionCall) Message {
	parts := make([]Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, TextPart{Text: text})
	}

	for _, c := range calls {
		parts = append(parts, FunctionCallPart{FunctionCall: c})
	}

	return newMessage(author, RoleAssistant, parts...)
}

// NewToolResultMessage records the completion result (or error) of a tool call.
// If err is non-nil its message is copied into the response Error field.
func NewToolResultMessage(author string, call FunctionCall, result any, err error) Message {
	fr := FunctionResponse{ID: call.ID, Name: call.Name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}

	return newMessage(author, RoleTool, FunctionResponsePart{FunctionResponse: fr})
}

// Role returns the conversation role of the message.
func (m Message) Role() string { return m.Content.Role }

// FunctionCalls returns the FunctionCall parts preserving their order.
func (m Message) FunctionCalls() []FunctionCall {
	var calls []FunctionCall

	for _, p := range m.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}

	return calls
}

// FunctionResponses returns the FunctionResponse parts preserving their order.
func (m Message) FunctionResponses() []FunctionResponse {
	var responses []FunctionResponse

	for _, p := range m.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}

	return responses
}

// Text concatenates all text parts.
func (m Message) Text() string {
	var sb strings.Builder

	for _, p := range m.Content.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}

	return sb.String()
}

// HasFunctionCalls reports whether the message requests any tool call.
func (m Message) HasFunctionCalls() bool {
	for _, p := range m.Content.Parts {
		if _, ok := p.(FunctionCallPart); ok {
			return true
		}
	}

	return false
}

// IsDegenerate reports an assistant output with neither tool calls nor
// non-whitespace text.
func (m Message) IsDegenerate() bool {
	return !m.HasFunctionCalls() && strings.TrimSpace(m.Text()) == ""
}

// LastUserText returns the text of the latest human message, if any.
func LastUserText(msgs []Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role() == RoleUser {
			return msgs[i].Text(), true
		}
	}

	return "", false
}

// LastAssistant returns the latest assistant message, if any.
func LastAssistant(msgs []Message) (Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role() == RoleAssistant {
			return msgs[i], true
		}
	}

	return Message{}, false
}

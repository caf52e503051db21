package ai

import "context"

// FilePayload is one multi-modal attachment for an analysis call.
type FilePayload struct {
	Filename string
	MimeType string
	Data     []byte // raw bytes; the client base64-encodes on the wire
}

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// Client is the opaque text-generation capability. The service returns
// natural-language text that may or may not contain an extractable JSON body;
// callers own tolerant extraction and schema coercion.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, history []ChatMessage, systemContext string) (string, error)
	AnalyzeFile(ctx context.Context, prompt string, file FilePayload) (string, error)
}

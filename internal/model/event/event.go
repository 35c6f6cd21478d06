// Package event holds the payloads exchanged with the backend.
package event

// Channel event names.
const (
	AskQuestion = "ask_question"
	BotResponse = "bot_response"
)

// Question is the outbound ask_question payload.
type Question struct {
	Question string `json:"question"`
}

// Answer is the inbound bot_response payload. Answer is a pointer so a
// missing field can be told apart from an empty one.
type Answer struct {
	Answer *string `json:"answer"`
}

// NewAnswer builds a bot_response payload.
func NewAnswer(text string) Answer {
	return Answer{Answer: &text}
}

// UploadReply is the JSON body returned by the upload endpoint.
type UploadReply struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

package types

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// TimeSpan is a start time and duration, both in seconds.
type TimeSpan struct {
	// Start in unix seconds.
	// example: 1700000000.25
	Start float64 `json:"start" example:"1700000000.25"`
	// Duration in seconds.
	// example: 3.5
	Duration float64 `json:"duration" example:"3.5"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Current session state.
	// example: ready
	State string `json:"state" example:"ready"`
	// ID of the configured model; empty when nothing is loaded.
	// example: llama-2-7b-chat-q4f16_1
	ModelID string `json:"model_id,omitempty" example:"llama-2-7b-chat-q4f16_1"`
	// Display name of the configured model.
	// example: Llama-2-7b-chat
	ModelName string `json:"model_name,omitempty" example:"Llama-2-7b-chat"`
	// Whether the configured model uses the vision pipeline.
	Vision bool `json:"vision"`
	// Runtime stats of the last completed generation.
	InfoText string `json:"info_text,omitempty"`
	// Number of messages in the conversation.
	// example: 4
	Messages int `json:"messages" example:"4"`
	// Timing of the last successful model load.
	LoadTime *TimeSpan `json:"load_time,omitempty"`
	// Request predicates evaluated against State.
	Chattable     bool `json:"chattable"`
	Resettable    bool `json:"resettable"`
	Interruptible bool `json:"interruptible"`
	Uploadable    bool `json:"uploadable"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// MessageView is one conversation message.
type MessageView struct {
	ID string `json:"id"`
	// example: bot
	Role string `json:"role" example:"bot"`
	Text string `json:"text"`
}

// MessagesResponse is returned by GET /messages.
type MessagesResponse struct {
	Messages []MessageView `json:"messages"`
}

// ReloadRequest selects the model to load.
type ReloadRequest struct {
	// Model id from GET /models; empty selects the server default.
	// example: llama-2-7b-chat-q4f16_1
	Model string `json:"model,omitempty" example:"llama-2-7b-chat-q4f16_1"`
}

// GenerateRequest starts a chat turn.
type GenerateRequest struct {
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
}

// AutomationRequest starts an unattended benchmark run.
type AutomationRequest struct {
	// Base name of the measurement files; defaults to the configured name.
	// example: llama-run-1
	FileName string `json:"file_name,omitempty" example:"llama-run-1"`
	// Conversations to run. When empty, the configured input file is read.
	Conversations [][]string `json:"conversations,omitempty"`
}

// AcceptedResponse acknowledges an asynchronous request with the state it moved the session to.
type AcceptedResponse struct {
	// example: generating
	State string `json:"state" example:"generating"`
}

// AutomationStatus reports the latest benchmark run started over HTTP.
type AutomationStatus struct {
	Running bool `json:"running"`
	// example: 2
	Conversations int `json:"conversations" example:"2"`
	// example: 3
	Questions int `json:"questions" example:"3"`
	// Questions whose runtime stats could not be parsed.
	SkippedQuestions int  `json:"skipped_questions"`
	Interrupted      bool `json:"interrupted"`
	Notified         bool `json:"notified"`
	// Path of the saved run; empty while running or when saving failed.
	Path string `json:"path,omitempty"`
	// Save error, if any.
	Error string `json:"error,omitempty"`
}

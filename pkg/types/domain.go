package types

// Model describes a model the session can load.
type Model struct {
	// Stable identifier for the model.
	// example: llama-2-7b-chat-q4f16_1
	ID string `json:"id" example:"llama-2-7b-chat-q4f16_1"`
	// Human-friendly name. Names starting with "minigpt" select the vision pipeline.
	// example: Llama-2-7b-chat
	Name string `json:"name" example:"Llama-2-7b-chat"`
	// Engine library reference passed to the loader.
	// example: llama_q4f16_1
	Lib string `json:"lib" example:"llama_q4f16_1"`
	// Absolute path to the model weights on disk.
	// example: /home/user/models/llama-2-7b-chat-q4f16_1.gguf
	Path string `json:"path" example:"/home/user/models/llama-2-7b-chat-q4f16_1.gguf"`
	// Estimated memory needed to load the model, in bytes.
	// example: 4080218931
	EstimatedBytes int64 `json:"estimated_bytes" example:"4080218931"`
}

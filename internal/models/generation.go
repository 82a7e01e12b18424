package models

// GenerationResult is the dialogue produced for one topic.
type GenerationResult struct {
	Topic        string `json:"topic"`
	Model        string `json:"model"`
	DialogueText string `json:"dialogue_text"`
}

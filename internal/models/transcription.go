package models

// TranscriptionResult is the assembled transcript of one stored file.
type TranscriptionResult struct {
	SourcePath     string `json:"source_path"`
	RecognizedPath string `json:"recognized_path"`
	Transcript     string `json:"transcript"`
	FromCache      bool   `json:"from_cache"`
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"podcastrelay/internal/config"
	"podcastrelay/internal/models"
	"podcastrelay/internal/service/generation"
	"podcastrelay/internal/service/transcription"
	"podcastrelay/internal/service/upload"
	"podcastrelay/internal/worker"
)

const (
	// multipart parts beyond this are spooled to disk
	multipartMemory = 8 << 20
	// room for the multipart envelope around the file
	multipartOverhead = 1 << 20
)

const (
	msgUploadFailed      = "File upload failed. Ensure you are uploading a valid audio file."
	msgTypeNotAllowed    = "Only WAV, MP3, FLAC, and M4A audio files are allowed"
	msgUploadTooLarge    = "Audio file is too large."
	msgUploadOK          = "File uploaded successfully"
	msgInvalidPrompt     = "Invalid or missing 'prompt' field."
	msgUnexpectedModel   = "Unexpected response from AI model."
	msgGenerationFailed  = "Failed to generate podcast content."
	msgMissingFilePath   = "Missing 'filePath' field."
	msgInvalidFilePath   = "filePath must reference an uploaded audio file."
	msgAudioNotFound     = "Audio file not found."
	msgTranscribeFailed  = "Failed to transcribe audio."
	msgServerBusy        = "server is busy, please retry"
	msgInternalError     = "internal server error"
	msgInvalidListLimit  = "invalid limit"
	msgListUploadsFailed = "Failed to list uploads."
)

type Uploader interface {
	Save(ctx context.Context, req upload.Request) (*models.UploadedFile, error)
	List(ctx context.Context, limit int) ([]*models.UploadedFile, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, filePath string) (*models.TranscriptionResult, error)
}

type PodcastGenerator interface {
	GeneratePodcast(ctx context.Context, topic string) (*models.GenerationResult, error)
}

// Handler validates request shape and delegates to the upload, transcription
// and generation services.
type Handler struct {
	uploads     Uploader
	transcriber Transcriber
	podcasts    PodcastGenerator
	audio       *config.AudioConfig
}

// NewHandler constructs a Handler instance.
func NewHandler(uploads Uploader, transcriber Transcriber, podcasts PodcastGenerator, audio *config.AudioConfig) *Handler {
	return &Handler{
		uploads:     uploads,
		transcriber: transcriber,
		podcasts:    podcasts,
		audio:       audio,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)
	router.POST("/upload-audio", h.uploadAudio)
	router.GET("/uploads", h.listUploads)
	router.POST("/generate-podcast", h.generatePodcast)
	router.POST("/transcribe-audio", h.transcribeAudio)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) uploadAudio(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.audio.MaxUploadBytes+multipartOverhead)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgUploadTooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msgUploadFailed})
		return
	}
	file, err := c.FormFile(h.audio.FormField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgUploadFailed})
		return
	}
	if file.Size > h.audio.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgUploadTooLarge})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgUploadFailed})
		return
	}
	defer f.Close()

	rec, err := h.uploads.Save(c.Request.Context(), upload.Request{
		FileName: file.Filename,
		MimeType: file.Header.Get("Content-Type"),
		Body:     f,
	})
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrDisallowedType):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgTypeNotAllowed})
		case errors.Is(err, upload.ErrNoFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgUploadFailed})
		default:
			slog.Error("store upload failed", "file", file.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgUploadFailed})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  msgUploadOK,
		"filePath": rec.StoredPath,
	})
}

func (h *Handler) listUploads(c *gin.Context) {
	limit := upload.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidListLimit})
			return
		}
		limit = n
	}
	files, err := h.uploads.List(c.Request.Context(), limit)
	if err != nil {
		slog.Error("list uploads failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgListUploadsFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": files})
}

type generatePodcastRequest struct {
	Prompt *string `json:"prompt"`
}

func (h *Handler) generatePodcast(c *gin.Context) {
	var req generatePodcastRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidPrompt})
		return
	}
	res, err := h.podcasts.GeneratePodcast(c.Request.Context(), *req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, generation.ErrInvalidPrompt):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidPrompt})
		case errors.Is(err, generation.ErrUnexpectedResponse):
			slog.Error("generation returned unexpected shape", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgUnexpectedModel})
		default:
			slog.Error("generate podcast failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgGenerationFailed})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"generatedText": res.DialogueText,
	})
}

type transcribeAudioRequest struct {
	FilePath string `json:"filePath"`
}

func (h *Handler) transcribeAudio(c *gin.Context) {
	var req transcribeAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FilePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingFilePath})
		return
	}
	res, err := h.transcriber.Transcribe(c.Request.Context(), req.FilePath)
	if err != nil {
		switch {
		case errors.Is(err, transcription.ErrInvalidPath):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidFilePath})
		case errors.Is(err, transcription.ErrFileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": msgAudioNotFound})
		case errors.Is(err, worker.ErrDispatcherBusy):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": msgServerBusy})
		default:
			slog.Error("transcribe audio failed", "path", req.FilePath, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgTranscribeFailed})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"transcription": res.Transcript,
	})
}

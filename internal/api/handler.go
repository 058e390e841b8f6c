package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pdf-chatbot/internal/ingest"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/rag"
)

type Handler struct {
	asker          Asker
	uploader       Uploader
	maxUploadBytes int64
	defaultLastN   int
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

type AskResponse struct {
	Question            string  `json:"question"`
	Answer              string  `json:"answer"`
	AnswerHTML          string  `json:"answer_html"`
	Route               string  `json:"route"`
	ResponseTimeSeconds float64 `json:"response_time_seconds"`
}

type UploadResponse struct {
	Filename              string  `json:"filename"`
	Message               string  `json:"message"`
	NumChunks             int     `json:"num_chunks"`
	PageCount             int     `json:"page_count"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

type HistoryResponse struct {
	History []models.Turn `json:"history"`
}

func errorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "missing file")
		return
	}
	if file.Size > h.maxUploadBytes {
		errorJSON(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	f, err := file.Open()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer f.Close()

	res, err := h.uploader.Upload(c.Request.Context(), file.Filename, f)
	if err != nil {
		log.Error().Err(err).Str("file", file.Filename).Msg("Upload failed")
		switch {
		case errors.Is(err, ingest.ErrUnsupportedFile):
			errorJSON(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ingest.ErrUploadInProgress):
			errorJSON(c, http.StatusConflict, err.Error())
		case errors.Is(err, ingest.ErrNoReadableText):
			errorJSON(c, http.StatusUnprocessableEntity, err.Error())
		default:
			errorJSON(c, http.StatusInternalServerError, "failed to process document")
		}
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		Filename:              res.Filename,
		Message:               res.Message,
		NumChunks:             res.NumChunks,
		PageCount:             res.PageCount,
		ProcessingTimeSeconds: roundSeconds(res.Elapsed.Seconds()),
	})
}

func (h *Handler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	lastN, ok := h.lastN(c)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "last_n must be an integer")
		return
	}

	res, err := h.asker.Ask(c.Request.Context(), req.Question, lastN)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrNoDocument):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "response_time_seconds": 0})
		case errors.Is(err, rag.ErrEmptyQuestion):
			errorJSON(c, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Msg("Ask failed")
			errorJSON(c, http.StatusInternalServerError, "failed to answer question")
		}
		return
	}

	c.JSON(http.StatusOK, AskResponse{
		Question:            res.Question,
		Answer:              res.Answer,
		AnswerHTML:          renderMarkdown(res.Answer),
		Route:               string(res.Route),
		ResponseTimeSeconds: roundSeconds(res.Elapsed.Seconds()),
	})
}

func (h *Handler) History(c *gin.Context) {
	lastN, ok := h.lastN(c)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "last_n must be an integer")
		return
	}
	turns := h.asker.History(lastN)
	if turns == nil {
		turns = []models.Turn{}
	}
	c.JSON(http.StatusOK, HistoryResponse{History: turns})
}

func (h *Handler) lastN(c *gin.Context) (int, bool) {
	raw := c.Query("last_n")
	if raw == "" {
		return h.defaultLastN, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func roundSeconds(s float64) float64 {
	return float64(int64(s*100+0.5)) / 100
}

package handler

import (
	"net/http"

	"sdr_assistant_backend/internal/chat/service"
	"sdr_assistant_backend/internal/chat/transport"
	"sdr_assistant_backend/platform/httpkit"
	"sdr_assistant_backend/platform/sanitize"
	"sdr_assistant_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	engine *service.Engine
	val    *validator.Validator
}

func New(engine *service.Engine, val *validator.Validator) *Handler {
	return &Handler{engine: engine, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limiter gin.HandlerFunc) {
	if limiter != nil {
		rg.POST("", limiter, h.Chat)
	} else {
		rg.POST("", h.Chat)
	}
	rg.GET("/history", h.History)
	rg.GET("/status", h.Status)
}

func (h *Handler) Chat(c *gin.Context) {
	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}
	message := sanitize.Message(req.Message, transport.MaxMessageRunes)
	if message == "" {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"message": "notblank"})
		return
	}

	userID, ok := httpkit.ResolveUserID(c, req.UserID)
	if !ok {
		return
	}

	res := h.engine.SubmitMessage(c.Request.Context(), userID, message)
	httpkit.OK(c, transport.ChatResponse{Reply: res.Reply, Escalated: res.Escalated})
}

func (h *Handler) History(c *gin.Context) {
	var req transport.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}
	if req.Limit == 0 {
		req.Limit = transport.DefaultHistoryLimit
	}

	userID, ok := httpkit.ResolveUserID(c, "")
	if !ok {
		return
	}

	turns, err := h.engine.History(c.Request.Context(), userID, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	out := transport.HistoryResponse{Messages: make([]transport.Message, len(turns))}
	for i, t := range turns {
		out.Messages[i] = transport.Message{Sender: string(t.Sender), Text: t.Text, Timestamp: t.CreatedAt}
	}
	httpkit.OK(c, out)
}

func (h *Handler) Status(c *gin.Context) {
	userID, ok := httpkit.ResolveUserID(c, "")
	if !ok {
		return
	}
	escalated, err := h.engine.IsEscalated(c.Request.Context(), userID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.StatusResponse{Escalated: escalated})
}

// Package handler provides the HTTP handlers of the agent studio API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/agent-studio/internal/model"
	"github.com/kart-io/agent-studio/internal/pipeline"
	"github.com/kart-io/agent-studio/internal/studio/biz"
)

// queryTimeout bounds one agent query, including retrieval and generation.
const queryTimeout = 60 * time.Second

// AgentHandler handles agent HTTP requests.
type AgentHandler struct {
	service *biz.AgentService
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(service *biz.AgentService) *AgentHandler {
	return &AgentHandler{service: service}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, biz.ErrAgentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, biz.ErrAgentInactive),
		errors.Is(err, biz.ErrNotDocumentable),
		errors.Is(err, biz.ErrOfficeLockFile),
		pipeline.IsUnsupportedFormat(err):
		status = http.StatusBadRequest
	}
	c.JSON(status, ErrorResponse{Code: status, Message: err.Error()})
}

func agentID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "invalid agent id"})
		return 0, false
	}
	return id, true
}

// CreateAgentRequest represents an agent creation request.
type CreateAgentRequest struct {
	Name          string         `json:"name" binding:"required"`
	Type          string         `json:"type" binding:"required"`
	Status        string         `json:"status"`
	Configuration map[string]any `json:"configuration"`
}

// Create creates a new agent.
func (h *AgentHandler) Create(c *gin.Context) {
	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	agentType, err := model.ParseAgentType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}
	status := model.AgentStatusActive
	if req.Status != "" {
		if status, err = model.ParseAgentStatus(req.Status); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
			return
		}
	}

	agent, err := h.service.CreateAgent(c.Request.Context(), &model.Agent{
		Name:          req.Name,
		Type:          agentType,
		Status:        status,
		Configuration: req.Configuration,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Agent created successfully", Data: agent})
}

// List lists agents with pagination.
func (h *AgentHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	total, agents, err := h.service.ListAgents(c.Request.Context(), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "OK", Data: gin.H{
		"total":  total,
		"agents": agents,
	}})
}

// Get retrieves one agent.
func (h *AgentHandler) Get(c *gin.Context) {
	id, ok := agentID(c)
	if !ok {
		return
	}
	agent, err := h.service.GetAgent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "OK", Data: agent})
}

// UpdateAgentRequest represents a partial agent update.
type UpdateAgentRequest struct {
	Name          *string        `json:"name"`
	Type          *string        `json:"type"`
	Status        *string        `json:"status"`
	Configuration map[string]any `json:"configuration"`
}

// Update applies a partial update to an agent.
func (h *AgentHandler) Update(c *gin.Context) {
	id, ok := agentID(c)
	if !ok {
		return
	}
	var req UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	update := &biz.AgentUpdate{Name: req.Name, Configuration: req.Configuration}
	if req.Type != nil {
		agentType, err := model.ParseAgentType(*req.Type)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
			return
		}
		update.Type = &agentType
	}
	if req.Status != nil {
		status, err := model.ParseAgentStatus(*req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
			return
		}
		update.Status = &status
	}

	agent, err := h.service.UpdateAgent(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Agent updated successfully", Data: agent})
}

// Delete removes an agent and its indexed documents.
func (h *AgentHandler) Delete(c *gin.Context) {
	id, ok := agentID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteAgent(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Agent deleted successfully"})
}

// QueryRequest represents an agent query.
type QueryRequest struct {
	Query    string `json:"query" binding:"required"`
	Language string `json:"language"`
	Mode     string `json:"mode"`
}

// Query runs a prompt through the agent's runtime.
func (h *AgentHandler) Query(c *gin.Context) {
	id, ok := agentID(c)
	if !ok {
		return
	}
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.service.Query(ctx, id, req.Query, req.Language, req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "OK", Data: result})
}

// Upload ingests a document into the agent's collection.
func (h *AgentHandler) Upload(c *gin.Context) {
	id, ok := agentID(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "missing file field"})
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer src.Close()

	if err := h.service.UploadDocument(c.Request.Context(), id, file.Filename, src); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Document processed successfully"})
}

// Context returns the raw retrieval snippets for a question.
func (h *AgentHandler) Context(c *gin.Context) {
	id, ok := agentID(c)
	if !ok {
		return
	}
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "query parameter is required"})
		return
	}

	snippets, err := h.service.DocumentContext(c.Request.Context(), id, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "OK", Data: gin.H{"context": snippets}})
}

// Formats returns the supported upload formats grouped by category.
func (h *AgentHandler) Formats(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "OK", Data: pipeline.SupportedFormats()})
}

// Stats returns service statistics.
func (h *AgentHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "OK", Data: stats})
}

// Healthz reports liveness.
func (h *AgentHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

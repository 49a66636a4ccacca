package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopmesh/shopmesh/internal/agent"
	"github.com/shopmesh/shopmesh/internal/models"
)

// chatRequest is the chat endpoint's request body. Messages arrive
// either as plain {role, content} pairs or as pre-structured
// {role, parts} messages; the orchestrator normalizes both.
type chatRequest struct {
	Messages []models.Message `json:"messages"`
}

// handleChat runs one agent turn and streams the response as
// server-sent events. The stream carries interleaved text deltas and
// tool results and terminates with a done (or error) event. The
// request is bounded by a hard wall-clock ceiling; client disconnects
// cancel generation mid-stream without rolling back committed tool
// side effects.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages must not be empty"})
		return
	}

	caller := callerFrom(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	// The sink is only invoked from the orchestrator's goroutine, so
	// writing directly to the response is safe.
	sink := func(e agent.Event) {
		writeEvent(c, e)
	}

	if _, err := s.orchestrator.Run(ctx, req.Messages, caller, sink); err != nil {
		s.logger.Error("agent run failed", map[string]interface{}{
			"error": err.Error(),
		})
		message := "request failed, please retry"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			message = "request timed out, please retry"
		}
		writeEvent(c, agent.Event{Type: agent.EventError, Message: message})
	}
}

func writeEvent(c *gin.Context, e agent.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	_, _ = c.Writer.WriteString("data: " + string(data) + "\n\n")
	c.Writer.Flush()
}

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auraflow/auraflow/internal/broker"
	"github.com/auraflow/auraflow/pkg/api"
)

var (
	ErrInvalidJSON   = errors.New("invalid JSON request")
	ErrCreateSession = errors.New("failed to create session")
)

func (s *Server) createSession(c *gin.Context) {
	var req api.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	sess, err := s.sessions.Create(c.Request.Context(), &req)
	if err == nil {
		c.JSON(http.StatusOK, api.CreateSessionResponse{
			Success:   true,
			SessionID: sess.ID,
			Message:   "Session created",
		})
		return
	}

	if errors.Is(err, api.ErrSessionPromptEmpty) ||
		errors.Is(err, api.ErrSessionSelectorsEmpty) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrCreateSession, err),
		Status: http.StatusInternalServerError,
	})
}

func (s *Server) getSession(c *gin.Context) {
	sessionID := api.SessionID(c.Param("sessionID"))

	sess, err := s.sessions.Get(c.Request.Context(), sessionID)
	if err == nil {
		c.JSON(http.StatusOK, api.SessionResponse{
			Success: true,
			Session: sess,
		})
		return
	}
	s.sessionError(c, sessionID, err)
}

func (s *Server) getSessionStatus(c *gin.Context) {
	sessionID := api.SessionID(c.Param("sessionID"))

	sess, err := s.sessions.Status(c.Request.Context(), sessionID)
	if err == nil {
		c.JSON(http.StatusOK, api.SessionStatusResponse{
			SessionID:   sess.ID,
			Status:      sess.Status,
			Result:      sess.Result,
			CompletedAt: sess.CompletedAt,
		})
		return
	}
	s.sessionError(c, sessionID, err)
}

func (s *Server) completeSession(c *gin.Context) {
	sessionID := api.SessionID(c.Param("sessionID"))

	var req api.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	sess, err := s.sessions.Complete(
		c.Request.Context(), sessionID, req.Result,
	)
	if err == nil {
		c.JSON(http.StatusOK, api.SessionResponse{
			Success: true,
			Session: sess,
		})
		return
	}
	s.sessionError(c, sessionID, err)
}

func (s *Server) sessionError(
	c *gin.Context, id api.SessionID, err error,
) {
	switch {
	case errors.Is(err, broker.ErrLocalSession):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", broker.ErrLocalSession, id),
			Status: http.StatusBadRequest,
		})
	case errors.Is(err, broker.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", broker.ErrSessionNotFound, id),
			Status: http.StatusNotFound,
		})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusInternalServerError,
		})
	}
}

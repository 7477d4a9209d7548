package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auraflow/auraflow/internal/catalog"
	"github.com/auraflow/auraflow/pkg/api"
)

var (
	ErrListWorkflows = errors.New("failed to list workflows")
	ErrSaveWorkflow  = errors.New("failed to save workflow")
)

func (s *Server) listWorkflows(c *gin.Context) {
	workflows, err := s.catalog.ListWorkflows(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrListWorkflows, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.WorkflowsListResponse{
		Workflows: workflows,
		Count:     len(workflows),
	})
}

func (s *Server) saveWorkflow(c *gin.Context) {
	var wf api.Workflow
	if err := c.ShouldBindJSON(&wf); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	err := s.catalog.PutWorkflow(c.Request.Context(), &wf)
	if err == nil {
		c.JSON(http.StatusOK, api.WorkflowSavedResponse{
			Workflow: &wf,
			Message:  "Workflow saved",
		})
		return
	}

	if isValidationError(err) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrSaveWorkflow, err),
		Status: http.StatusInternalServerError,
	})
}

func (s *Server) getWorkflow(c *gin.Context) {
	workflowID := api.WorkflowID(c.Param("workflowID"))

	wf, err := s.catalog.GetWorkflow(c.Request.Context(), workflowID)
	if err == nil {
		c.JSON(http.StatusOK, wf)
		return
	}

	if errors.Is(err, catalog.ErrWorkflowNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusInternalServerError,
	})
}

func (s *Server) deleteWorkflow(c *gin.Context) {
	workflowID := api.WorkflowID(c.Param("workflowID"))

	err := s.catalog.DeleteWorkflow(c.Request.Context(), workflowID)
	if err == nil {
		c.JSON(http.StatusOK, api.MessageResponse{
			Message: "Workflow deleted",
		})
		return
	}

	if errors.Is(err, catalog.ErrWorkflowNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusInternalServerError,
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, api.ErrWorkflowIDEmpty) ||
		errors.Is(err, api.ErrNodeIDEmpty) ||
		errors.Is(err, api.ErrInvalidNodeKind) ||
		errors.Is(err, api.ErrEdgeNodeMissing) ||
		errors.Is(err, api.ErrDuplicateNodeID) ||
		errors.Is(err, api.ErrTriggerSelectors) ||
		errors.Is(err, api.ErrModuleIDEmpty) ||
		errors.Is(err, api.ErrModuleNameEmpty)
}

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
	ErrListModules = errors.New("failed to list modules")
	ErrSaveModule  = errors.New("failed to save module")
)

func (s *Server) listModules(c *gin.Context) {
	modules, err := s.catalog.ListModules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrListModules, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.ModulesListResponse{
		Modules: modules,
		Count:   len(modules),
	})
}

func (s *Server) saveModule(c *gin.Context) {
	var m api.Module
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	err := s.catalog.PutModule(c.Request.Context(), &m)
	if err == nil {
		c.JSON(http.StatusOK, api.ModuleSavedResponse{
			Module:  &m,
			Message: "Module saved",
		})
		return
	}
	s.moduleError(c, err)
}

func (s *Server) getModule(c *gin.Context) {
	moduleID := api.ModuleID(c.Param("moduleID"))

	m, err := s.catalog.GetModule(c.Request.Context(), moduleID)
	if err == nil {
		c.JSON(http.StatusOK, m)
		return
	}
	s.moduleError(c, err)
}

func (s *Server) deleteModule(c *gin.Context) {
	moduleID := api.ModuleID(c.Param("moduleID"))

	err := s.catalog.DeleteModule(c.Request.Context(), moduleID)
	if err == nil {
		c.JSON(http.StatusOK, api.MessageResponse{
			Message: "Module deleted",
		})
		return
	}
	s.moduleError(c, err)
}

func (s *Server) moduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrModuleNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
	case errors.Is(err, catalog.ErrPresetImmutable):
		c.JSON(http.StatusForbidden, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusForbidden,
		})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrSaveModule, err),
			Status: http.StatusInternalServerError,
		})
	}
}

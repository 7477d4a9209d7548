package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/auraflow/auraflow/internal/broker"
	"github.com/auraflow/auraflow/internal/catalog"
)

// Server implements the HTTP API server for the broker and catalog
type Server struct {
	sessions *broker.Store
	hub      *broker.Hub
	catalog  *catalog.Catalog
	sockets  map[*Client]struct{}
	mu       sync.Mutex
}

// NewServer creates a new HTTP API server
func NewServer(
	sessions *broker.Store, hub *broker.Hub, cat *catalog.Catalog,
) *Server {
	return &Server{
		sessions: sessions,
		hub:      hub,
		catalog:  cat,
		sockets:  map[*Client]struct{}{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API
// endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware. The page-side agent calls in from arbitrary
	// origins
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		// Session endpoints
		api.POST("/session/create", s.createSession)
		api.GET("/session/:sessionID", s.getSession)
		api.GET("/session/:sessionID/status", s.getSessionStatus)
		api.POST("/session/:sessionID/complete", s.completeSession)

		// Workflow endpoints
		api.GET("/workflows", s.listWorkflows)
		api.POST("/workflows", s.saveWorkflow)
		api.GET("/workflows/:workflowID", s.getWorkflow)
		api.DELETE("/workflows/:workflowID", s.deleteWorkflow)

		// Module endpoints
		api.GET("/modules", s.listModules)
		api.POST("/modules", s.saveModule)
		api.GET("/modules/:moduleID", s.getModule)
		api.DELETE("/modules/:moduleID", s.deleteModule)

		// WebSocket
		api.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[c] = struct{}{}
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

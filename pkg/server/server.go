// Package server exposes the orchestrator over HTTP: session CRUD, transcript
// and display snapshots, and the websocket endpoint that binds a realtime
// channel to a session.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/channel"
)

type Server struct {
	e  *echo.Echo
	sm *Manager
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func New(sm *Manager) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("Request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	s := &Server{e: e, sm: sm}

	group := e.Group("/api")

	// Create a new session
	group.POST("/sessions", s.createSession)
	// List all sessions
	group.GET("/sessions", s.getSessions)
	// Get a session snapshot by id
	group.GET("/sessions/:id", s.getSession)
	// Delete a session
	group.DELETE("/sessions/:id", s.deleteSession)
	// Send a user message into a running session
	group.POST("/sessions/:id/messages", s.sendMessage)
	// Attach the realtime channel
	group.GET("/sessions/:id/ws", s.attachChannel)

	// Health check endpoint
	group.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := http.Server{
		Handler: s.e,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx := context.WithoutCancel(ctx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Server shutdown failed", "error", err)
		}
		s.sm.Close()
	}()

	if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

func (s *Server) createSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	sess, err := s.sm.CreateSession(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to create session: %v", err))
	}

	return c.JSON(http.StatusOK, snapshot(sess))
}

func (s *Server) getSessions(c echo.Context) error {
	summaries, err := s.sm.GetSessions(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to get sessions: %v", err))
	}
	return c.JSON(http.StatusOK, summaries)
}

func (s *Server) getSession(c echo.Context) error {
	sess, err := s.sm.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("session not found: %v", err))
	}
	return c.JSON(http.StatusOK, snapshot(sess))
}

func (s *Server) deleteSession(c echo.Context) error {
	if err := s.sm.DeleteSession(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("failed to delete session: %v", err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) sendMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	itemID, err := s.sm.SendMessage(c.Param("id"), req.Text)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, MessageResponse{ItemID: itemID})
}

func (s *Server) attachChannel(c echo.Context) error {
	sessionID := c.Param("id")
	if _, err := s.sm.GetSession(c.Request().Context(), sessionID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("session not found: %v", err))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("upgrading connection: %w", err)
	}

	ch := channel.NewWebsocket(conn)
	defer ch.Close()

	if err := s.sm.Attach(c.Request().Context(), sessionID, ch); err != nil {
		slog.Warn("Channel detached with error", "session_id", sessionID, "error", err)
	}
	return nil
}

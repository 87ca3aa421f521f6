// Package server serves the chat web UI and its JSON API.
package server

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adalundhe/museswarm/core/engine"
	serrors "github.com/adalundhe/museswarm/core/errors"
	"github.com/adalundhe/museswarm/core/session"
	"github.com/adalundhe/museswarm/core/swarm"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

//go:embed static/index.html
var indexHTML []byte

// Runner executes one negotiation. engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, prompt string, opts engine.RunOptions) (*swarm.Result, error)
}

type PromptRequest struct {
	Prompt string `json:"prompt"`
}

type EntryView struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Avatar  string `json:"avatar"`
}

type PromptResponse struct {
	Messages []EntryView `json:"messages"`
	Reason   string      `json:"reason"`
	Turns    int         `json:"turns"`
	Error    string      `json:"error,omitempty"`
}

type HistoryResponse struct {
	ID       string      `json:"id"`
	Messages []EntryView `json:"messages"`
}

type Server struct {
	echo   *echo.Echo
	runner Runner
	store  *session.Store
	logger *slog.Logger
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(runner Runner, store *session.Store, opts ...Option) *Server {
	s := &Server{
		echo:   echo.New(),
		runner: runner,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		// The default capacity always validates.
		s.store, _ = session.NewStore(session.WithStoreLogger(s.logger))
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(s.requestLogger(), middleware.Recover(), middleware.CORS())

	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/", s.index)

	api := s.echo.Group("/api")
	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id/messages", s.getMessages)
	api.POST("/sessions/:id/prompt", s.sendPrompt)
	api.DELETE("/sessions/:id", s.deleteSession)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			s.logger.Info("request", attrs...)
			return nil
		},
	})
}

func (s *Server) index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, indexHTML)
}

func (s *Server) createSession(c echo.Context) error {
	sess := s.store.Create()
	s.logger.Info("session created", slog.String("session_id", sess.ID()))
	return c.JSON(http.StatusCreated, map[string]string{"id": sess.ID()})
}

func (s *Server) getMessages(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, HistoryResponse{ID: sess.ID(), Messages: views(sess.Messages())})
}

func (s *Server) deleteSession(c echo.Context) error {
	if !s.store.Delete(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) sendPrompt(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	req := new(PromptRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, swarm.ErrEmptyPrompt.Error())
	}

	if err := sess.Begin(); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	defer sess.End()

	res, err := s.runner.Run(c.Request().Context(), prompt, engine.RunOptions{SessionID: sess.ID()})
	if res == nil {
		switch {
		case err == nil:
			return echo.NewHTTPError(http.StatusInternalServerError, "run produced no result")
		case errors.Is(err, swarm.ErrEmptyPrompt):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("run failed", slog.String("session_id", sess.ID()), slog.String("error", err.Error()))
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	sess.AddPrompt(prompt)
	added := sess.Append(res)

	resp := PromptResponse{
		Messages: views(added),
		Reason:   string(res.Reason),
		Turns:    res.Turns,
	}
	if err != nil {
		resp.Error = err.Error()
		s.logger.Warn("run aborted",
			slog.String("session_id", sess.ID()),
			slog.String("kind", serrors.KindOf(err).String()),
			slog.String("error", err.Error()),
		)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) lookup(c echo.Context) (*session.Session, error) {
	sess, err := s.store.Get(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Your session was not found")
	}
	return sess, nil
}

func views(entries []session.Entry) []EntryView {
	out := make([]EntryView, len(entries))
	for i, e := range entries {
		out[i] = EntryView{Name: e.Name, Content: e.Content, Avatar: session.Avatar(e.Name)}
	}
	return out
}

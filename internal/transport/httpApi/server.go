package httpApi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KotFed0t/invest_advice_bot/config"
)

type Server struct {
	srv *http.Server
}

// NewRouter builds the engine with request id, logging and recovery middleware in that order.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	h.Register(r)
	return r
}

func New(cfg *config.Config, h *Handler) *Server {
	gin.SetMode(cfg.HTTP.GinMode)

	return &Server{
		srv: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      NewRouter(h),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	slog.Info("http server starting", slog.String("addr", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}

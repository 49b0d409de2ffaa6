package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Server отдаёт /metrics и /healthz.
type Server struct {
	e    *echo.Echo
	addr string
}

// NewServer создаёт HTTP-сервер метрик на addr.
func NewServer(addr string, m *Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	return &Server{e: e, addr: addr}
}

// Start запускает сервер в фоне.
func (s *Server) Start() {
	go func() {
		if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("addr", s.addr).Error("Сервер метрик остановился с ошибкой")
		}
	}()
	log.WithField("addr", s.addr).Info("Сервер метрик запущен")
}

// Shutdown останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Handler нужен тестам.
func (s *Server) Handler() http.Handler {
	return s.e
}

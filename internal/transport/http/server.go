package transporthttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

const shutdownTimeout = 10 * time.Second

type RadarProvider interface {
	Latest() (model.RadarOutput, bool)
}

type SourceLister interface {
	Sources(ctx context.Context) ([]model.Source, error)
}

// Server отдает результат последнего прогона по HTTP
type Server struct {
	echo    *echo.Echo
	addr    string
	radar   RadarProvider
	sources SourceLister
	log     zerolog.Logger
}

func NewServer(addr string, radar RadarProvider, sources SourceLister, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		addr:    addr,
		radar:   radar,
		sources: sources,
		log:     log,
	}

	e.HTTPErrorHandler = s.errorHandler
	e.Use(s.requestLogger())
	e.Use(middleware.Recover())

	e.GET("/healthz", s.health)
	e.GET("/radar", s.handleRadar)
	e.GET("/stats", s.handleStats)
	e.GET("/sources", s.handleSources)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start слушает addr до отмены контекста, потом мягко гасит сервер
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GET /radar?limit=5&min_hotness=0.4
func (s *Server) handleRadar(c echo.Context) error {
	out, ok := s.radar.Latest()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "radar has not completed a run yet")
	}

	minHotness := 0.0
	if v := c.QueryParam("min_hotness"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "min_hotness must be a number in [0,1]")
		}
		minHotness = parsed
	}

	events := make([]model.EnrichedEvent, 0, len(out.TopEvents))
	for _, e := range out.TopEvents {
		if e.Hotness >= minHotness {
			events = append(events, e)
		}
	}

	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		if len(events) > limit {
			events = events[:limit]
		}
	}

	out.TopEvents = events
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleStats(c echo.Context) error {
	out, ok := s.radar.Latest()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "radar has not completed a run yet")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"run_id":           out.RunID,
		"timestamp":        out.Timestamp,
		"processing_stats": out.Stats,
	})
}

type sourceView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	URL         string `json:"url"`
	Category    string `json:"category,omitempty"`
	Credibility int    `json:"credibility"`
}

// Ключи провайдеров наружу не отдаем
func (s *Server) handleSources(c echo.Context) error {
	if s.sources == nil {
		return echo.NewHTTPError(http.StatusNotFound, "sources listing is disabled")
	}

	sources, err := s.sources.Sources(c.Request().Context())
	if err != nil {
		return err
	}

	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		views = append(views, sourceView{
			ID:          src.ID,
			Name:        src.Name,
			Kind:        src.Kind,
			URL:         src.FeedURL,
			Category:    src.Category,
			Credibility: src.Credibility,
		})
	}
	return c.JSON(http.StatusOK, views)
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, map[string]any{"error": he.Message})
		return
	}

	s.log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
	_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogLatency:  true,
		LogURI:      true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.log.Error().Err(v.Error).Str("uri", v.URI).Int("status", v.Status).Msg("request failed")
				return nil
			}
			s.log.Debug().Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	})
}

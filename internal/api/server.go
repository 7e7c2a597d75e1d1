// Package api exposes the quantization engine over HTTP.
package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/nibble/internal/backend"
	"github.com/samcharles93/nibble/internal/engine"
	"github.com/samcharles93/nibble/internal/logger"
	"github.com/samcharles93/nibble/internal/version"
)

type Server struct {
	engine *engine.Engine
	log    logger.Logger
}

func NewServer(eng *engine.Engine, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{engine: eng, log: log}
}

// Register mounts the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/quantize", s.handleQuantize)
	e.POST("/v1/dropout", s.handleDropout)
	e.POST("/v1/roundtrip", s.handleRoundTrip)
}

type HealthResponse struct {
	Status  string       `json:"status"`
	Devices string       `json:"devices"`
	Version version.Info `json:"version"`
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Devices: backend.Available(),
		Version: version.Resolve(),
	})
}

func (s *Server) handleQuantize(c *echo.Context) error {
	req, err := decodeJSON[engine.QuantizeRequest](c)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	res, err := s.engine.Quantize(c.Request().Context(), &req)
	if err != nil {
		return s.fail(c, "quantize", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleDropout(c *echo.Context) error {
	req, err := decodeJSON[engine.DropoutRequest](c)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	res, err := s.engine.Dropout(c.Request().Context(), &req)
	if err != nil {
		return s.fail(c, "dropout", err)
	}
	return c.JSON(http.StatusOK, res)
}

type RoundTripResponse struct {
	Results []engine.RoundTripResult `json:"results"`
}

func (s *Server) handleRoundTrip(c *echo.Context) error {
	req, err := decodeJSON[engine.RoundTripRequest](c)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	res, err := s.engine.RoundTrip(c.Request().Context(), &req)
	if err != nil {
		return s.fail(c, "roundtrip", err)
	}
	return c.JSON(http.StatusOK, RoundTripResponse{Results: res})
}

func (s *Server) fail(c *echo.Context, op string, err error) error {
	status, errType := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "op", op, "error", err)
	}
	return writeError(c, status, errType, err.Error())
}

package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/present/rest/presenter"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

// Realtime streams score events for a changing set of addresses.
type Realtime interface {
	Realtime(ctx context.Context, input <-chan []string, output chan<- domain.ScoreEvent)
}

type Handler struct {
	registry *usecase.RegistryUsecase
	signal   Realtime
	gatherer prometheus.Gatherer
}

func NewHandler(
	registry *usecase.RegistryUsecase,
	signal Realtime,
	gatherer prometheus.Gatherer,
) *Handler {
	return &Handler{
		registry: registry,
		signal:   signal,
		gatherer: gatherer,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.POST("/registry/submit-passport", h.handleSubmitPassport)
	e.GET("/registry/score/:community/:address", h.handleScore)
	if h.signal != nil {
		e.GET("/registry/realtime", h.handleRealtime)
	}
	if h.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

type SubmitPassportRequest struct {
	Community uint   `json:"community"`
	Address   string `json:"address"`
}

func (h *Handler) handleSubmitPassport(c echo.Context) error {
	ctx := c.Request().Context()

	var req SubmitPassportRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Community == 0 {
		return presenter.BadRequestMessage(c, "community is required")
	}

	view, err := h.registry.Submit(ctx, req.Community, req.Address)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, view)
}

func (h *Handler) handleScore(c echo.Context) error {
	ctx := c.Request().Context()

	community, err := strconv.ParseUint(c.Param("community"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid community")
	}

	view, err := h.registry.GetScore(ctx, uint(community), c.Param("address"))
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, view)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type      string   `json:"type"`
	Addresses []string `json:"addresses"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []string)
	output := make(chan domain.ScoreEvent)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Addresses:
				case <-ctx.Done():
					return
				}
				slog.DebugContext(
					ctx, "Socket subscribe",
					slog.Any("addresses", req.Addresses),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}

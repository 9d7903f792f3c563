package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/picsync/picsync"
	"github.com/picsync/picsync/internal/domain"
	"github.com/picsync/picsync/internal/present/rest/presenter"
	"github.com/picsync/picsync/internal/service"
	"github.com/picsync/picsync/internal/usecase"
)

type Handler struct {
	interaction *usecase.InteractionUsecase
	signal      *service.SignalService
}

func NewHandler(
	interaction *usecase.InteractionUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		interaction: interaction,
		signal:      signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.handleHealth)
	e.POST("/interactions", h.handleCreate)
	e.DELETE("/interactions/:id", h.handleDelete)
	e.GET("/interactions", h.handleByImage)
	e.GET("/interactions/recent", h.handleRecent)
	e.GET("/interactions/counts", h.handleCounts)
	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleCreate(c echo.Context) error {
	ctx := c.Request().Context()

	var item picsync.Interaction
	err := c.Bind(&item)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	err = h.interaction.Create(ctx, item)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleDelete(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	err := h.interaction.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "interaction not found")
		}
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleByImage(c echo.Context) error {
	ctx := c.Request().Context()

	imageID := c.QueryParam("imageId")
	if imageID == "" {
		return presenter.BadRequestMessage(c, "imageId parameter is required")
	}

	items, err := h.interaction.GetByImage(ctx, imageID)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, items)
}

func (h *Handler) handleRecent(c echo.Context) error {
	ctx := c.Request().Context()

	limit := usecase.FeedWindow
	limitStr := c.QueryParam("limit")
	if limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		limit = limitInt
	}

	items, err := h.interaction.GetRecent(ctx, limit)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, items)
}

func (h *Handler) handleCounts(c echo.Context) error {
	ctx := c.Request().Context()

	imageID := c.QueryParam("imageId")
	if imageID == "" {
		return presenter.BadRequestMessage(c, "imageId parameter is required")
	}

	counts, err := h.interaction.CountsByImage(ctx, imageID)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, counts)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type     string   `json:"type"`
	ImageIDs []string `json:"imageIds"`
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
	defer func() {
		ws.Close()
	}()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []string)
	output := make(chan picsync.Event)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
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

				close(quit)
				break
			}

			switch req.Type {
			case "listen":
				channels := subscriptionChannels(req.ImageIDs)
				select {
				case input <- channels:
				case <-ctx.Done():
					return
				}
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", channels),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
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

// subscriptionChannels maps a listen request to pub/sub channels. An
// empty image list means the global feed.
func subscriptionChannels(imageIDs []string) []string {
	if len(imageIDs) == 0 {
		return []string{service.ChannelAll}
	}
	channels := make([]string, 0, len(imageIDs))
	for _, id := range imageIDs {
		channels = append(channels, service.ChannelImage(id))
	}
	return channels
}

package http

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/usecase/buissines"
	"github.com/nooksocial/nook-engine/internal/infrastructure/http/server"
	pkgerrors "github.com/nooksocial/nook-engine/pkg/errors"
)

// Handlers exposes the query surface over HTTP
type Handlers struct {
	uc     *buissines.UseCase
	mapper *pkgerrors.Mapper
	logger zerolog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type recountRequest struct {
	ContentID string `json:"content_id"`
}

// NewHandlers creates new HTTP handlers
func NewHandlers(uc *buissines.UseCase, logger zerolog.Logger) *Handlers {
	return &Handlers{
		uc:     uc,
		mapper: pkgerrors.NewMapper(),
		logger: logger,
	}
}

// RegisterRoutes attaches all routes to the server router
func (h *Handlers) RegisterRoutes(s *server.Server) {
	s.Router.GET("/health", h.HandleHealth)
	s.Router.POST("/api/v1/feed", h.HandleFeed)
	s.Router.GET("/api/v1/content/{id:*}", h.HandleGetContent)
	s.Router.POST("/api/v1/content/batch", h.HandleGetContentBatch)
	s.Router.POST("/api/v1/engagement/recount", h.HandleRecount)
}

// HandleHealth reports liveness
func (h *Handlers) HandleHealth(ctx *fasthttp.RequestCtx) {
	h.writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
}

// HandleFeed serves one page of a topic-indexed feed
func (h *Handlers) HandleFeed(ctx *fasthttp.RequestCtx) {
	var req dto.FeedRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.writeError(ctx, fasthttp.StatusBadRequest, "invalid request body")
		return
	}

	response, err := h.uc.QueryFeed(ctx, &req)
	if err != nil {
		h.logger.Error().Err(err).Msg("Feed query failed")
		status, message := h.mapper.MapErrorToHttp(err)
		h.writeError(ctx, status, message)
		return
	}

	h.writeJSON(ctx, fasthttp.StatusOK, response)
}

// HandleGetContent returns a single content record by id
func (h *Handlers) HandleGetContent(ctx *fasthttp.RequestCtx) {
	contentID, _ := ctx.UserValue("id").(string)
	if contentID == "" {
		h.writeError(ctx, fasthttp.StatusBadRequest, "missing content id")
		return
	}

	item, err := h.uc.GetContent(ctx, contentID)
	if err != nil {
		status, message := h.mapper.MapErrorToHttp(err)
		h.writeError(ctx, status, message)
		return
	}

	h.writeJSON(ctx, fasthttp.StatusOK, item)
}

// HandleGetContentBatch returns content records for a set of ids
func (h *Handlers) HandleGetContentBatch(ctx *fasthttp.RequestCtx) {
	var req dto.ContentBatchRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.writeError(ctx, fasthttp.StatusBadRequest, "invalid request body")
		return
	}

	items, err := h.uc.GetContents(ctx, req.ContentIDs)
	if err != nil {
		h.logger.Error().Err(err).Msg("Content batch lookup failed")
		status, message := h.mapper.MapErrorToHttp(err)
		h.writeError(ctx, status, message)
		return
	}

	h.writeJSON(ctx, fasthttp.StatusOK, dto.ContentBatchResponse{Contents: items})
}

// HandleRecount recomputes the engagement counters of one content record
func (h *Handlers) HandleRecount(ctx *fasthttp.RequestCtx) {
	var req recountRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.ContentID == "" {
		h.writeError(ctx, fasthttp.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.uc.RecountEngagement(ctx, req.ContentID); err != nil {
		status, message := h.mapper.MapErrorToHttp(err)
		h.writeError(ctx, status, message)
		return
	}

	h.writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}

func (h *Handlers) writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	h.writeJSON(ctx, status, errorResponse{Error: message})
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/internal/core"
	"ledger/internal/services"
)

// labelHandlers serves one taxonomy, categories or tags, under its own
// route group.
type labelHandlers struct {
	svc *services.TaxonomyService
}

func newLabelHandlers(svc *services.TaxonomyService) *labelHandlers {
	return &labelHandlers{svc: svc}
}

func (h *labelHandlers) register(g *gin.RouterGroup) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.replace)
	g.PATCH("/:id", h.patch)
	g.DELETE("/:id", h.archive)
}

// list returns visible, active labels unless include_hidden or
// include_archived widen it.
func (h *labelHandlers) list(c *gin.Context) {
	filter, err := parseLabelFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	labels, err := h.svc.List(c.Request.Context(), currentUser(c).ID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLabels(labels))
}

func (h *labelHandlers) create(c *gin.Context) {
	var req labelRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	l, err := h.svc.Create(c.Request.Context(), currentUser(c).ID, req.input(core.LabelInput{IsVisible: true}))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLabel(l))
}

func (h *labelHandlers) get(c *gin.Context) {
	l, err := h.svc.Get(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLabel(l))
}

func (h *labelHandlers) replace(c *gin.Context) {
	var req labelRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	l, err := h.svc.Update(c.Request.Context(), c.Param("id"), currentUser(c).ID, req.input(core.LabelInput{IsVisible: true}))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLabel(l))
}

func (h *labelHandlers) patch(c *gin.Context) {
	ctx, userID := c.Request.Context(), currentUser(c).ID
	var req labelRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	current, err := h.svc.Get(ctx, c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	l, err := h.svc.Update(ctx, current.ID, userID, req.input(labelInput(current)))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLabel(l))
}

// archive backs DELETE: labels are retired, never removed, so past
// transactions keep them.
func (h *labelHandlers) archive(c *gin.Context) {
	if err := h.svc.Archive(c.Request.Context(), c.Param("id"), currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"family-groceries/internal/session"
)

// keepAlive is how often an idle event stream touches its session so the
// manager does not evict it while a viewer is connected.
var keepAlive = 30 * time.Second

// withSession loads the session named by the :id path parameter.
func (h *Handler) withSession(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return s, true
}

// respond writes the session view, or the error of the command that ran.
func respond(c *gin.Context, s *session.Session, err error) {
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// CreateSession handles POST /api/sessions.
func (h *Handler) CreateSession(c *gin.Context) {
	s, err := h.sessions.Open()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": s.ID()})
}

// GetSession handles GET /api/sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// DeleteSession handles DELETE /api/sessions/:id.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StreamSession handles GET /api/sessions/:id/events. It sends the current
// view, then a fresh view after every change until the client goes away or
// the session closes.
func (h *Handler) StreamSession(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.SSEvent("view", s.View())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-s.Changes():
			c.SSEvent("view", s.View())
			return true
		case <-ticker.C:
			if _, err := h.sessions.Get(s.ID()); err != nil {
				return false
			}
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-s.Done():
			return false
		case <-ctx.Done():
			return false
		}
	})
}

// RefreshSession handles POST /api/sessions/:id/refresh.
func (h *Handler) RefreshSession(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	respond(c, s, s.Refresh(c.Request.Context()))
}

type addItemRequest struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// AddItem handles POST /api/sessions/:id/items.
func (h *Handler) AddItem(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := s.Add(c.Request.Context(), req.Name, req.Quantity); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.View())
}

type quickAddRequest struct {
	Name string `json:"name" binding:"required"`
}

// QuickAdd handles POST /api/sessions/:id/quick-add.
func (h *Handler) QuickAdd(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	var req quickAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if s.SuggestionDisabled(req.Name) {
		abortWithError(c, session.ErrSuggestionDisabled)
		return
	}
	if err := s.QuickAdd(c.Request.Context(), req.Name); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.View())
}

type toggleItemRequest struct {
	Checked *bool `json:"checked" binding:"required"`
}

// ToggleItem handles PATCH /api/sessions/:id/items/:itemID.
func (h *Handler) ToggleItem(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	var req toggleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	respond(c, s, s.Toggle(c.Request.Context(), c.Param("itemID"), *req.Checked))
}

// ReviewDelete handles POST /api/sessions/:id/items/:itemID/review.
func (h *Handler) ReviewDelete(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	respond(c, s, s.RequestDelete(c.Param("itemID")))
}

// ReviewPurchase handles POST /api/sessions/:id/purchase/review.
func (h *Handler) ReviewPurchase(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	respond(c, s, s.RequestPurchase())
}

// ConfirmReview handles POST /api/sessions/:id/review/confirm.
func (h *Handler) ConfirmReview(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	respond(c, s, s.ConfirmReview(c.Request.Context()))
}

// CancelReview handles DELETE /api/sessions/:id/review.
func (h *Handler) CancelReview(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	respond(c, s, s.CancelReview())
}

// Undo handles POST /api/sessions/:id/undo.
func (h *Handler) Undo(c *gin.Context) {
	s, ok := h.withSession(c)
	if !ok {
		return
	}
	respond(c, s, s.Undo(c.Request.Context()))
}

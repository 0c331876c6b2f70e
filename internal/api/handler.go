package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"family-groceries/internal/quickadd"
	"family-groceries/internal/session"
	"family-groceries/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	sessions        *session.Manager
	store           store.Store
	ranker          *quickadd.Ranker
	webpush         *webpush.Options
	suggestionLimit int
}

// NewHandler creates a new API handler. webpushOptions may be nil when push
// is disabled.
func NewHandler(sessions *session.Manager, s store.Store, ranker *quickadd.Ranker, webpushOptions *webpush.Options, suggestionLimit int) *Handler {
	if suggestionLimit <= 0 {
		suggestionLimit = 6
	}
	return &Handler{
		sessions:        sessions,
		store:           s,
		ranker:          ranker,
		webpush:         webpushOptions,
		suggestionLimit: suggestionLimit,
	}
}

// statusFor maps command errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, session.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNothingChecked),
		errors.Is(err, session.ErrNothingToUndo),
		errors.Is(err, session.ErrSuggestionDisabled),
		errors.Is(err, session.ErrNoReview):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

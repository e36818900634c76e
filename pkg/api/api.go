// Package api exposes the social feed over HTTP.
package api

import (
	"errors"
	"strconv"

	"github.com/chirpnet/chirp/pkg/controller"
	"github.com/chirpnet/chirp/pkg/observability/logger"
	"github.com/chirpnet/chirp/pkg/repository/document"
	"github.com/chirpnet/chirp/pkg/repository/social"
	"github.com/chirpnet/chirp/pkg/server/router"
)

// API wires the social feed operations to HTTP routes.
type API struct {
	repo   social.Repository
	logger logger.Logger
}

// New creates the API over a repository.
func New(repo social.Repository, log logger.Logger) *API {
	return &API{repo: repo, logger: log}
}

// Register mounts all routes. writeMiddleware is applied to mutating
// endpoints only, on top of whatever global middleware the router carries.
func (a *API) Register(r router.Router, writeMiddleware ...router.MiddlewareFunc) {
	r.POST("/tweets", a.createTweet, writeMiddleware...)
	r.GET("/tweets/:id", a.getTweet)
	r.GET("/users/:name/tweets", a.listUserTweets)
	r.POST("/relationships", a.createRelationship, writeMiddleware...)
	r.GET("/feed", a.getFeed)
}

// mapDomainError translates repository failures into the application
// error contract. Unknown errors stay internal and unleaked.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, social.ErrInvalidText), errors.Is(err, social.ErrEmptyName):
		return controller.NewValidationError(err.Error(), nil)
	case errors.Is(err, document.ErrInvalidCursor):
		return controller.NewValidationError("invalid pagination cursor", nil)
	case errors.Is(err, document.ErrNotFound):
		return controller.NewNotFoundError("referenced entity does not exist")
	case document.IsStoreError(err):
		return controller.NewUnavailableError("document store unavailable", err)
	default:
		return controller.NewInternalError("operation failed", err)
	}
}

// pageRequest reads the size and after query parameters. A non-numeric or
// negative size is rejected before any store interaction.
func pageRequest(c router.Context) (social.PageRequest, error) {
	page := social.PageRequest{After: c.Query("after")}

	if raw := c.Query("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return social.PageRequest{}, controller.FieldErrors([]controller.FieldError{
				{Field: "size", Message: "must be a positive integer"},
			})
		}
		page.Size = size
	}
	return page, nil
}

package api

import (
	"github.com/chirpnet/chirp/pkg/controller"
	"github.com/chirpnet/chirp/pkg/repository/social"
	"github.com/chirpnet/chirp/pkg/server/router"
)

func (a *API) createTweet(c router.Context) error {
	var req CreateTweetRequest
	if err := c.Bind(&req); err != nil {
		return controller.Error(c, controller.NewValidationError("invalid request body", nil))
	}
	if err := controller.ValidateDTO(&req); err != nil {
		return controller.Error(c, err)
	}

	tweet, err := a.repo.CreateTweet(c.Request().Context(), social.CreateTweetInput{
		User: req.User,
		Text: req.Text,
	})
	if err != nil {
		return controller.Error(c, mapDomainError(err))
	}
	return controller.Created(c, tweet)
}

func (a *API) getTweet(c router.Context) error {
	tweet, err := a.repo.GetTweetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return controller.Error(c, mapDomainError(err))
	}
	return controller.Success(c, tweet)
}

func (a *API) listUserTweets(c router.Context) error {
	page, err := pageRequest(c)
	if err != nil {
		return controller.Error(c, err)
	}

	tweets, err := a.repo.ListTweetsByUser(c.Request().Context(), c.Param("name"), page)
	if err != nil {
		return controller.Error(c, mapDomainError(err))
	}
	return controller.Success(c, tweets)
}

func (a *API) createRelationship(c router.Context) error {
	var req CreateRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return controller.Error(c, controller.NewValidationError("invalid request body", nil))
	}
	if err := controller.ValidateDTO(&req); err != nil {
		return controller.Error(c, err)
	}

	rel, err := a.repo.CreateRelationship(c.Request().Context(), social.CreateRelationshipInput{
		Follower: req.Follower,
		Followee: req.Followee,
	})
	if err != nil {
		return controller.Error(c, mapDomainError(err))
	}
	return controller.Created(c, rel)
}

// getFeed computes the feed of the user named by the caller. The reader
// identity is an explicit query parameter, never implied by the server.
func (a *API) getFeed(c router.Context) error {
	name := c.Query("user")
	if name == "" {
		return controller.Error(c, controller.FieldErrors([]controller.FieldError{
			{Field: "user", Message: "is required"},
		}))
	}

	page, err := pageRequest(c)
	if err != nil {
		return controller.Error(c, err)
	}

	feed, err := a.repo.GetFeedForUser(c.Request().Context(), name, page)
	if err != nil {
		return controller.Error(c, mapDomainError(err))
	}
	return controller.Success(c, feed)
}

package api

import (
	"strings"

	"github.com/chirpnet/chirp/pkg/controller"
	"github.com/chirpnet/chirp/pkg/repository/social"
)

// CreateTweetRequest is the payload of POST /tweets. The owner is part of
// the payload; there is no implicit identity.
type CreateTweetRequest struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// Validate implements controller.Validator.
func (r *CreateTweetRequest) Validate() error {
	var errs []controller.FieldError
	if strings.TrimSpace(r.User) == "" {
		errs = append(errs, controller.FieldError{Field: "user", Message: "is required"})
	}
	if err := social.ValidateTweetText(r.Text); err != nil {
		errs = append(errs, controller.FieldError{Field: "text", Message: err.Error()})
	}
	if len(errs) > 0 {
		return controller.FieldErrors(errs)
	}
	return nil
}

// CreateRelationshipRequest is the payload of POST /relationships.
type CreateRelationshipRequest struct {
	Follower string `json:"follower"`
	Followee string `json:"followee"`
}

// Validate implements controller.Validator.
func (r *CreateRelationshipRequest) Validate() error {
	var errs []controller.FieldError
	if strings.TrimSpace(r.Follower) == "" {
		errs = append(errs, controller.FieldError{Field: "follower", Message: "is required"})
	}
	if strings.TrimSpace(r.Followee) == "" {
		errs = append(errs, controller.FieldError{Field: "followee", Message: "is required"})
	}
	if len(errs) > 0 {
		return controller.FieldErrors(errs)
	}
	return nil
}

// Package social provides the repository operations of the social feed:
// tweets, follow relationships and feed computation over a document store.
package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chirpnet/chirp/pkg/observability/logger"
	"github.com/chirpnet/chirp/pkg/query"
	"github.com/chirpnet/chirp/pkg/repository/document"
)

// Tweet text length bounds, enforced before any store interaction.
const (
	MinTweetLength = 5
	MaxTweetLength = 280
)

// ErrInvalidText reports a tweet text outside the allowed length bounds.
var ErrInvalidText = fmt.Errorf("tweet text must be between %d and %d characters", MinTweetLength, MaxTweetLength)

// ErrEmptyName reports a missing user name.
var ErrEmptyName = errors.New("user name is required")

// Tweet is an immutable message owned by a user.
type Tweet struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Relationship is a directed follow edge between two users.
type Relationship struct {
	ID        string    `json:"id"`
	Follower  string    `json:"follower"`
	Followee  string    `json:"followee"`
	CreatedAt time.Time `json:"created_at"`
}

// TweetPage is one page of tweets with an opaque continuation cursor.
type TweetPage struct {
	Tweets []Tweet `json:"tweets"`
	After  string  `json:"after,omitempty"`
}

// PageRequest bounds a paginated read. Zero values select the defaults.
type PageRequest struct {
	Size  int
	After string
}

// CreateTweetInput carries the pre-validated fields of a new tweet.
type CreateTweetInput struct {
	User string
	Text string
}

// CreateRelationshipInput carries the endpoints of a new follow edge.
// Duplicate edges are not prevented.
type CreateRelationshipInput struct {
	Follower string
	Followee string
}

// Repository is the contract of the social feed operations. Every
// operation performs exactly one executor round trip; store failures
// propagate without retries.
type Repository interface {
	CreateTweet(ctx context.Context, input CreateTweetInput) (*Tweet, error)
	GetTweetByID(ctx context.Context, id string) (*Tweet, error)
	ListTweetsByUser(ctx context.Context, name string, page PageRequest) (*TweetPage, error)
	CreateRelationship(ctx context.Context, input CreateRelationshipInput) (*Relationship, error)
	GetFeedForUser(ctx context.Context, name string, page PageRequest) (*TweetPage, error)
}

// DocumentRepository implements Repository on a document store executor.
// It holds no mutable state; the executor is an injected, read-only
// capability, safe for concurrent invocations.
type DocumentRepository struct {
	exec   document.Executor
	logger logger.Logger
	now    func() time.Time
}

// NewDocumentRepository creates a DocumentRepository.
func NewDocumentRepository(exec document.Executor, log logger.Logger) (*DocumentRepository, error) {
	if exec == nil {
		return nil, fmt.Errorf("document executor is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &DocumentRepository{
		exec:   exec,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// ValidateTweetText checks the tweet length bounds.
func ValidateTweetText(text string) error {
	if n := len([]rune(text)); n < MinTweetLength || n > MaxTweetLength {
		return ErrInvalidText
	}
	return nil
}

// CreateTweet creates a tweet owned by the named user. Name resolution is
// nested inside the creation expression, so an unknown user fails the
// whole operation with document.ErrNotFound and nothing is written.
func (r *DocumentRepository) CreateTweet(ctx context.Context, input CreateTweetInput) (*Tweet, error) {
	if input.User == "" {
		return nil, ErrEmptyName
	}
	if err := ValidateTweetText(input.Text); err != nil {
		return nil, err
	}

	expr := query.TweetCreate(
		query.ResolveUserRef(input.User),
		input.Text,
		query.Value{V: r.now()},
	)
	doc, err := r.exec.QueryDocument(ctx, expr)
	if err != nil {
		return nil, fmt.Errorf("create tweet for user %q: %w", input.User, err)
	}

	r.logger.WithContext(ctx).Info("tweet created", "user", input.User, "tweet", doc[query.RefPath])
	return tweetFromDocument(doc), nil
}

// GetTweetByID reads a single tweet by its opaque reference id.
func (r *DocumentRepository) GetTweetByID(ctx context.Context, id string) (*Tweet, error) {
	doc, err := r.exec.QueryDocument(ctx, query.TweetGet(id))
	if err != nil {
		return nil, fmt.Errorf("get tweet %q: %w", id, err)
	}
	return tweetFromDocument(doc), nil
}

// ListTweetsByUser returns one page of the named user's tweets, in store
// reference order. An unknown user fails with document.ErrNotFound; a
// known user with no tweets yields an empty page.
func (r *DocumentRepository) ListTweetsByUser(ctx context.Context, name string, page PageRequest) (*TweetPage, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	expr := query.TweetsByUserPage(query.ResolveUserRef(name), page.Size, page.After)
	result, err := r.exec.QueryPage(ctx, expr)
	if err != nil {
		return nil, fmt.Errorf("list tweets for user %q: %w", name, err)
	}
	return tweetPageFromResult(result), nil
}

// CreateRelationship creates a follow edge. Both endpoints are resolved
// inside the creation expression; either name failing to resolve fails
// the whole operation without a partial write.
func (r *DocumentRepository) CreateRelationship(ctx context.Context, input CreateRelationshipInput) (*Relationship, error) {
	if input.Follower == "" || input.Followee == "" {
		return nil, ErrEmptyName
	}

	expr := query.RelationshipCreate(
		query.ResolveUserRef(input.Follower),
		query.ResolveUserRef(input.Followee),
		query.Value{V: r.now()},
	)
	doc, err := r.exec.QueryDocument(ctx, expr)
	if err != nil {
		return nil, fmt.Errorf("create relationship %q -> %q: %w", input.Follower, input.Followee, err)
	}

	r.logger.WithContext(ctx).Info("relationship created",
		"follower", input.Follower, "followee", input.Followee)
	return relationshipFromDocument(doc), nil
}

// GetFeedForUser returns one page of tweets authored by anyone the named
// user follows. An unknown user fails with document.ErrNotFound; a user
// following nobody yields an empty page.
func (r *DocumentRepository) GetFeedForUser(ctx context.Context, name string, page PageRequest) (*TweetPage, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	expr := query.FeedPage(query.ResolveUserRef(name), page.Size, page.After)
	result, err := r.exec.QueryPage(ctx, expr)
	if err != nil {
		return nil, fmt.Errorf("feed for user %q: %w", name, err)
	}
	return tweetPageFromResult(result), nil
}

func tweetFromDocument(doc document.Document) *Tweet {
	return &Tweet{
		ID:        stringField(doc, query.RefPath),
		User:      stringField(doc, query.FieldUser),
		Text:      stringField(doc, query.FieldText),
		CreatedAt: timeField(doc, query.FieldCreatedAt),
	}
}

func relationshipFromDocument(doc document.Document) *Relationship {
	return &Relationship{
		ID:        stringField(doc, query.RefPath),
		Follower:  stringField(doc, query.FieldFollower),
		Followee:  stringField(doc, query.FieldFollowee),
		CreatedAt: timeField(doc, query.FieldCreatedAt),
	}
}

func tweetPageFromResult(result document.Page) *TweetPage {
	page := &TweetPage{
		Tweets: make([]Tweet, 0, len(result.Data)),
		After:  result.After,
	}
	for _, doc := range result.Data {
		page.Tweets = append(page.Tweets, *tweetFromDocument(doc))
	}
	return page
}

func stringField(doc document.Document, field string) string {
	if v, ok := doc[field].(string); ok {
		return v
	}
	return ""
}

func timeField(doc document.Document, field string) time.Time {
	if v, ok := doc[field].(time.Time); ok {
		return v
	}
	return time.Time{}
}

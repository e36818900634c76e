package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chirpnet/chirp/pkg/query"
	mongostore "github.com/chirpnet/chirp/pkg/store/mongodb"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestNewMongoDBExecutor_Validation(t *testing.T) {
	if _, err := NewMongoDBExecutor(nil, nil); err == nil {
		t.Fatal("expected error for nil store")
	}

	exec, err := NewMongoDBExecutor(&mongostore.Adapter{}, nil, WithTransactions(true))
	require.NoError(t, err)
	require.NotNil(t, exec)
	assert.True(t, exec.transactional)
}

// fakeStore implements Store in memory, recording every operation so
// tests can assert on call ordering and compiled filters.
type fakeStore struct {
	docs     map[string]bson.M // collection -> single FindOne result
	findRaw  []bson.M
	findErr  error
	aggRaw   []bson.M
	aggErr   error
	insertID primitive.ObjectID

	findOneErr error

	inserts       []fakeInsert
	lookups       []string
	findFilter    bson.M
	findOpts      *options.FindOptions
	aggCollection string
	aggPipeline   mongo.Pipeline
	txCalls       int
}

type fakeInsert struct {
	collection string
	doc        bson.M
}

func (s *fakeStore) InsertOne(_ context.Context, collection string, doc interface{}) (*mongo.InsertOneResult, error) {
	s.inserts = append(s.inserts, fakeInsert{collection: collection, doc: doc.(bson.M)})
	return &mongo.InsertOneResult{InsertedID: s.insertID}, nil
}

func (s *fakeStore) FindOne(_ context.Context, collection string, _ interface{}, result interface{}) error {
	s.lookups = append(s.lookups, collection)
	if s.findOneErr != nil {
		return s.findOneErr
	}
	doc, ok := s.docs[collection]
	if !ok {
		return mongo.ErrNoDocuments
	}
	*result.(*bson.M) = doc
	return nil
}

func (s *fakeStore) Find(_ context.Context, _ string, filter interface{}, opts *options.FindOptions) ([]bson.M, error) {
	s.findFilter = filter.(bson.M)
	s.findOpts = opts
	return s.findRaw, s.findErr
}

func (s *fakeStore) Aggregate(_ context.Context, collection string, pipeline mongo.Pipeline) ([]bson.M, error) {
	s.aggCollection = collection
	s.aggPipeline = pipeline
	return s.aggRaw, s.aggErr
}

func (s *fakeStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	s.txCalls++
	return fn(ctx)
}

func newFakeExecutor(t *testing.T, store *fakeStore, opts ...MongoDBExecutorOption) *MongoDBExecutor {
	t.Helper()
	exec, err := NewMongoDBExecutor(store, nil, opts...)
	require.NoError(t, err)
	return exec
}

func TestQueryDocument_CreateUnknownUserWritesNothing(t *testing.T) {
	store := &fakeStore{docs: map[string]bson.M{}}
	exec := newFakeExecutor(t, store)

	expr := query.TweetCreate(query.ResolveUserRef("ghost"), "hello world", query.Value{V: time.Now().UTC()})
	_, err := exec.QueryDocument(context.Background(), expr)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.inserts, "failed name resolution must leave no partial write")
	assert.Equal(t, []string{query.Users}, store.lookups)
}

func TestQueryDocument_CreateResolvesUserBeforeInsert(t *testing.T) {
	userID := primitive.NewObjectID()
	tweetID := primitive.NewObjectID()
	store := &fakeStore{
		docs:     map[string]bson.M{query.Users: {fieldID: userID, query.FieldName: "alice"}},
		insertID: tweetID,
	}
	exec := newFakeExecutor(t, store)

	created := time.Now().UTC()
	doc, err := exec.QueryDocument(context.Background(), query.TweetCreate(query.ResolveUserRef("alice"), "hello world", query.Value{V: created}))
	require.NoError(t, err)

	require.Len(t, store.inserts, 1)
	ins := store.inserts[0]
	assert.Equal(t, query.Tweets, ins.collection)
	assert.Equal(t, userID, ins.doc[query.FieldUser], "insert carries the resolved user reference")
	assert.Equal(t, "hello world", ins.doc[query.FieldText])

	assert.Equal(t, tweetID.Hex(), doc[query.RefPath])
	assert.Equal(t, userID.Hex(), doc[query.FieldUser])
}

func TestQueryDocument_CreateWithLookupUsesTransaction(t *testing.T) {
	userID := primitive.NewObjectID()
	store := &fakeStore{
		docs:     map[string]bson.M{query.Users: {fieldID: userID}},
		insertID: primitive.NewObjectID(),
	}
	exec := newFakeExecutor(t, store, WithTransactions(true))

	_, err := exec.QueryDocument(context.Background(), query.TweetCreate(query.ResolveUserRef("alice"), "hello world", query.Value{V: time.Now().UTC()}))
	require.NoError(t, err)
	assert.Equal(t, 1, store.txCalls)

	// A plain create with fully literal data needs no transaction.
	_, err = exec.QueryDocument(context.Background(), query.Create{
		Collection: query.Tweets,
		Data:       query.Doc{query.FieldText: query.Value{V: "hello world"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.txCalls)
}

func TestQueryDocument_GetMapsMissingToNotFound(t *testing.T) {
	store := &fakeStore{docs: map[string]bson.M{}}
	exec := newFakeExecutor(t, store)

	_, err := exec.QueryDocument(context.Background(), query.TweetGet(primitive.NewObjectID().Hex()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryDocument_GetWrapsStoreFailure(t *testing.T) {
	store := &fakeStore{findOneErr: errors.New("connection reset")}
	exec := newFakeExecutor(t, store)

	_, err := exec.QueryDocument(context.Background(), query.TweetGet(primitive.NewObjectID().Hex()))
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestQueryPage_MatchCompilesFilterAndTrims(t *testing.T) {
	userID := primitive.NewObjectID()
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}
	after := primitive.NewObjectID()
	store := &fakeStore{
		docs: map[string]bson.M{query.Users: {fieldID: userID}},
		findRaw: []bson.M{
			{fieldID: ids[0], query.FieldText: "one"},
			{fieldID: ids[1], query.FieldText: "two"},
			{fieldID: ids[2], query.FieldText: "three"},
		},
	}
	exec := newFakeExecutor(t, store)

	page, err := exec.QueryPage(context.Background(), query.TweetsByUserPage(query.ResolveUserRef("alice"), 2, after.Hex()))
	require.NoError(t, err)

	assert.Equal(t, userID, store.findFilter[query.FieldUser], "filter matches on the resolved user reference")
	assert.Equal(t, bson.M{"$gt": after}, store.findFilter[fieldID])
	require.NotNil(t, store.findOpts.Limit)
	assert.EqualValues(t, 3, *store.findOpts.Limit, "over-fetch by one to detect the next page")

	require.Len(t, page.Data, 2)
	assert.Equal(t, ids[1].Hex(), page.After)
}

func TestQueryPage_MatchUnknownUserIsNotFound(t *testing.T) {
	store := &fakeStore{docs: map[string]bson.M{}}
	exec := newFakeExecutor(t, store)

	_, err := exec.QueryPage(context.Background(), query.TweetsByUserPage(query.ResolveUserRef("ghost"), 10, ""))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, store.findFilter, "no page query after failed name resolution")
}

func TestQueryPage_JoinAggregatesOverSourceCollection(t *testing.T) {
	followerID := primitive.NewObjectID()
	tweetID := primitive.NewObjectID()
	store := &fakeStore{
		docs:   map[string]bson.M{query.Users: {fieldID: followerID}},
		aggRaw: []bson.M{{fieldID: tweetID, query.FieldText: "hello"}},
	}
	exec := newFakeExecutor(t, store)

	page, err := exec.QueryPage(context.Background(), query.FeedPage(query.ResolveUserRef("alice"), 10, ""))
	require.NoError(t, err)

	assert.Equal(t, query.Relationships, store.aggCollection)
	assert.Equal(t, joinPipeline(query.RelationshipsByFollower, query.TweetsByUser, followerID, nil, 10), store.aggPipeline)

	require.Len(t, page.Data, 1)
	assert.Equal(t, "hello", page.Data[0][query.FieldText])
	assert.Empty(t, page.After, "exhausted feed has no cursor")
}

func TestQueryPage_JoinUnknownUserIsNotFound(t *testing.T) {
	store := &fakeStore{docs: map[string]bson.M{}}
	exec := newFakeExecutor(t, store)

	_, err := exec.QueryPage(context.Background(), query.FeedPage(query.ResolveUserRef("ghost"), 10, ""))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, store.aggPipeline, "no aggregation after failed name resolution")
}

func TestQueryPage_StoreFailuresWrapAsStoreError(t *testing.T) {
	userID := primitive.NewObjectID()
	store := &fakeStore{
		docs:    map[string]bson.M{query.Users: {fieldID: userID}},
		findErr: errors.New("cursor timeout"),
		aggErr:  errors.New("cursor timeout"),
	}
	exec := newFakeExecutor(t, store)

	_, err := exec.QueryPage(context.Background(), query.TweetsByUserPage(query.ResolveUserRef("alice"), 10, ""))
	assert.True(t, IsStoreError(err))

	_, err = exec.QueryPage(context.Background(), query.FeedPage(query.ResolveUserRef("alice"), 10, ""))
	assert.True(t, IsStoreError(err))
}

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, defaultPageSize, normalizePageSize(0, defaultPageSize, maxPageSize))
	assert.Equal(t, defaultPageSize, normalizePageSize(-3, defaultPageSize, maxPageSize))
	assert.Equal(t, 10, normalizePageSize(10, defaultPageSize, maxPageSize))
	assert.Equal(t, maxPageSize, normalizePageSize(10_000, defaultPageSize, maxPageSize))
	assert.Equal(t, 50, normalizePageSize(0, 50, 200))
	assert.Equal(t, 200, normalizePageSize(500, 50, 200))
}

func TestObjectIDFromRef_InvalidIDIsNotFound(t *testing.T) {
	_, err := objectIDFromRef(query.Ref{Collection: query.Tweets, ID: "not-a-ref"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCursorObjectID(t *testing.T) {
	oid, err := cursorObjectID("")
	require.NoError(t, err)
	assert.Nil(t, oid)

	valid := primitive.NewObjectID()
	oid, err = cursorObjectID(valid.Hex())
	require.NoError(t, err)
	require.NotNil(t, oid)
	assert.Equal(t, valid, *oid)

	_, err = cursorObjectID("garbage")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestJoinPipeline_Shape(t *testing.T) {
	follower := primitive.NewObjectID()
	pipeline := joinPipeline(query.RelationshipsByFollower, query.TweetsByUser, follower, nil, 25)

	// match, lookup, unwind, replaceRoot, sort, limit
	require.Len(t, pipeline, 6)

	match := pipeline[0][0]
	assert.Equal(t, "$match", match.Key)
	assert.Equal(t, bson.D{{Key: query.FieldFollower, Value: follower}}, match.Value)

	lookup := pipeline[1][0]
	assert.Equal(t, "$lookup", lookup.Key)
	lookupSpec := lookup.Value.(bson.D)
	assert.Equal(t, bson.D{
		{Key: "from", Value: query.Tweets},
		{Key: "localField", Value: query.FieldFollowee},
		{Key: "foreignField", Value: query.FieldUser},
		{Key: "as", Value: "joined"},
	}, lookupSpec)

	assert.Equal(t, "$unwind", pipeline[2][0].Key)
	assert.Equal(t, "$replaceRoot", pipeline[3][0].Key)
	assert.Equal(t, "$sort", pipeline[4][0].Key)

	limit := pipeline[5][0]
	assert.Equal(t, "$limit", limit.Key)
	assert.Equal(t, int64(26), limit.Value)
}

func TestJoinPipeline_WithCursorAddsMatchStage(t *testing.T) {
	after := primitive.NewObjectID()
	pipeline := joinPipeline(query.RelationshipsByFollower, query.TweetsByUser, "term", &after, 10)

	require.Len(t, pipeline, 7)
	cursorMatch := pipeline[4][0]
	assert.Equal(t, "$match", cursorMatch.Key)
	assert.Equal(t, bson.D{{Key: fieldID, Value: bson.D{{Key: "$gt", Value: after}}}}, cursorMatch.Value)
}

func TestBuildPage_TrimsAndSetsCursor(t *testing.T) {
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}
	raw := []bson.M{
		{fieldID: ids[0], "text": "first"},
		{fieldID: ids[1], "text": "second"},
		{fieldID: ids[2], "text": "third"},
	}

	page := buildPage(raw, 2)
	require.Len(t, page.Data, 2)
	assert.Equal(t, ids[1].Hex(), page.After, "cursor should point at the last kept document")
	assert.Equal(t, ids[0].Hex(), page.Data[0][query.RefPath])
}

func TestBuildPage_ExhaustedSetHasNoCursor(t *testing.T) {
	raw := []bson.M{{fieldID: primitive.NewObjectID()}}
	page := buildPage(raw, 5)
	assert.Len(t, page.Data, 1)
	assert.Empty(t, page.After)

	empty := buildPage(nil, 5)
	assert.Empty(t, empty.Data)
	assert.Empty(t, empty.After)
}

// Property: a page never exceeds the requested size, and a continuation
// cursor is present exactly when documents were left behind.
func TestProperty_BuildPageBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("page bounded by size with cursor iff truncated", prop.ForAll(
		func(docCount, size int) bool {
			raw := make([]bson.M, docCount)
			for i := range raw {
				raw[i] = bson.M{fieldID: primitive.NewObjectID()}
			}
			page := buildPage(raw, size)

			if len(page.Data) > size {
				return false
			}
			truncated := docCount > size
			return (page.After != "") == truncated
		},
		gen.IntRange(0, 50),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNormalizeDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	userOID := primitive.NewObjectID()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	doc := normalizeDocument(bson.M{
		fieldID:      oid,
		"user":       userOID,
		"text":       "hello world",
		"created_at": primitive.NewDateTimeFromTime(created),
		"nested":     bson.M{"inner": oid},
		"list":       bson.A{userOID, "plain"},
	})

	assert.Equal(t, oid.Hex(), doc[query.RefPath])
	assert.Equal(t, userOID.Hex(), doc["user"])
	assert.Equal(t, "hello world", doc["text"])
	assert.Equal(t, created, doc["created_at"])
	assert.Equal(t, Document{"inner": oid.Hex()}, doc["nested"])
	assert.Equal(t, []interface{}{userOID.Hex(), "plain"}, doc["list"])
}

func TestHasDeferredLookup(t *testing.T) {
	literal := query.Doc{
		"text": query.Value{V: "hi there"},
		"user": query.Ref{Collection: query.Users, ID: primitive.NewObjectID().Hex()},
	}
	assert.False(t, hasDeferredLookup(literal))

	deferred := query.Doc{
		"text": query.Value{V: "hi there"},
		"user": query.ResolveUserRef("gaby"),
	}
	assert.True(t, hasDeferredLookup(deferred))
}

func TestPassthroughOrStoreError(t *testing.T) {
	assert.ErrorIs(t, passthroughOrStoreError("op", ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, passthroughOrStoreError("op", ErrInvalidCursor), ErrInvalidCursor)

	storeErr := &StoreError{Op: "find", Err: errors.New("timeout")}
	assert.Equal(t, error(storeErr), passthroughOrStoreError("op", storeErr))

	wrapped := passthroughOrStoreError("transaction tweets", errors.New("session expired"))
	assert.True(t, IsStoreError(wrapped))
}

func TestStoreError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &StoreError{Op: "find tweets", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "find tweets")
}

package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/chirpnet/chirp/pkg/observability/logger"
	"github.com/chirpnet/chirp/pkg/query"
	mongostore "github.com/chirpnet/chirp/pkg/store/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the subset of MongoDB operations the executor needs. It is
// satisfied by *mongodb.Adapter.
type Store interface {
	InsertOne(ctx context.Context, collection string, doc interface{}) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, collection string, filter interface{}, result interface{}) error
	Find(ctx context.Context, collection string, filter interface{}, opts *options.FindOptions) ([]bson.M, error)
	Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline) ([]bson.M, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error)
}

var _ Store = (*mongostore.Adapter)(nil)

// MongoDBExecutor interprets composed expressions against MongoDB.
//
// Deferred lookups nested inside an expression (Select terms, Create data
// values) are resolved during execution. When transactions are enabled,
// a Create whose data contains deferred lookups runs inside a session
// transaction so resolution and insert commit or abort as a unit.
type MongoDBExecutor struct {
	store         Store
	logger        logger.Logger
	transactional bool
	pageSize      int
	maxPageSize   int
}

// MongoDBExecutorOption configures a MongoDBExecutor.
type MongoDBExecutorOption func(*MongoDBExecutor)

// WithTransactions enables session transactions for creates with deferred
// lookups. Requires a replica set or mongos deployment.
func WithTransactions(enabled bool) MongoDBExecutorOption {
	return func(e *MongoDBExecutor) {
		e.transactional = enabled
	}
}

// WithPageBounds overrides the default and maximum page sizes.
func WithPageBounds(def, max int) MongoDBExecutorOption {
	return func(e *MongoDBExecutor) {
		if def > 0 {
			e.pageSize = def
		}
		if max >= e.pageSize {
			e.maxPageSize = max
		}
	}
}

// NewMongoDBExecutor creates a new MongoDBExecutor instance.
func NewMongoDBExecutor(store Store, log logger.Logger, opts ...MongoDBExecutorOption) (*MongoDBExecutor, error) {
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	e := &MongoDBExecutor{
		store:       store,
		logger:      log,
		pageSize:    defaultPageSize,
		maxPageSize: maxPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// QueryDocument executes a Get or Create expression.
func (e *MongoDBExecutor) QueryDocument(ctx context.Context, expr query.Expr) (Document, error) {
	switch x := expr.(type) {
	case query.Get:
		raw, err := e.rawGet(ctx, x)
		if err != nil {
			return nil, err
		}
		return normalizeDocument(raw), nil
	case query.Create:
		return e.create(ctx, x)
	default:
		return nil, fmt.Errorf("expression %T does not produce a single document", expr)
	}
}

// QueryPage executes a Paginate expression over a Match or Join source.
func (e *MongoDBExecutor) QueryPage(ctx context.Context, expr query.Expr) (Page, error) {
	p, ok := expr.(query.Paginate)
	if !ok {
		return Page{}, fmt.Errorf("expression %T does not produce a page", expr)
	}

	size := normalizePageSize(p.Size, e.pageSize, e.maxPageSize)
	after, err := cursorObjectID(p.After)
	if err != nil {
		return Page{}, err
	}

	switch from := p.From.(type) {
	case query.Match:
		filter, err := e.matchFilter(ctx, from)
		if err != nil {
			return Page{}, err
		}
		if after != nil {
			filter[fieldID] = bson.M{"$gt": *after}
		}
		opts := options.Find().
			SetSort(bson.D{{Key: fieldID, Value: 1}}).
			SetLimit(int64(size + 1))
		raw, err := e.store.Find(ctx, from.Index.Collection, filter, opts)
		if err != nil {
			e.logger.WithContext(ctx).Error("page query failed", "collection", from.Index.Collection, "error", err)
			return Page{}, &StoreError{Op: "find " + from.Index.Collection, Err: err}
		}
		return buildPage(raw, size), nil

	case query.Join:
		src, ok := from.Source.(query.Match)
		if !ok {
			return Page{}, fmt.Errorf("join source %T is not an index match", from.Source)
		}
		term, err := e.matchTerm(ctx, src)
		if err != nil {
			return Page{}, err
		}
		pipeline := joinPipeline(src.Index, from.With, term, after, size)
		raw, err := e.store.Aggregate(ctx, src.Index.Collection, pipeline)
		if err != nil {
			e.logger.WithContext(ctx).Error("join query failed", "collection", src.Index.Collection, "error", err)
			return Page{}, &StoreError{Op: "aggregate " + src.Index.Collection, Err: err}
		}
		return buildPage(raw, size), nil

	default:
		return Page{}, fmt.Errorf("paginate source %T is not supported", p.From)
	}
}

// rawGet reads the single document behind a Get without normalization.
func (e *MongoDBExecutor) rawGet(ctx context.Context, g query.Get) (bson.M, error) {
	switch from := g.From.(type) {
	case query.Ref:
		oid, err := objectIDFromRef(from)
		if err != nil {
			return nil, err
		}
		return e.rawFindOne(ctx, from.Collection, bson.M{fieldID: oid})
	case query.Match:
		filter, err := e.matchFilter(ctx, from)
		if err != nil {
			return nil, err
		}
		return e.rawFindOne(ctx, from.Index.Collection, filter)
	default:
		return nil, fmt.Errorf("get source %T is not supported", g.From)
	}
}

func (e *MongoDBExecutor) rawFindOne(ctx context.Context, collection string, filter bson.M) (bson.M, error) {
	var out bson.M
	if err := e.store.FindOne(ctx, collection, filter, &out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", collection, ErrNotFound)
		}
		e.logger.WithContext(ctx).Error("lookup failed", "collection", collection, "error", err)
		return nil, &StoreError{Op: "find " + collection, Err: err}
	}
	return out, nil
}

// matchFilter compiles an index match into a filter, resolving deferred
// term lookups along the way.
func (e *MongoDBExecutor) matchFilter(ctx context.Context, m query.Match) (bson.M, error) {
	term, err := e.matchTerm(ctx, m)
	if err != nil {
		return nil, err
	}
	return bson.M{m.Index.Term: term}, nil
}

func (e *MongoDBExecutor) matchTerm(ctx context.Context, m query.Match) (interface{}, error) {
	if len(m.Terms) != 1 {
		return nil, fmt.Errorf("index %s expects exactly one term, got %d", m.Index.Name, len(m.Terms))
	}
	return e.eval(ctx, m.Terms[0])
}

// eval resolves an expression to a scalar value usable as a filter term or
// document field.
func (e *MongoDBExecutor) eval(ctx context.Context, expr query.Expr) (interface{}, error) {
	switch x := expr.(type) {
	case query.Value:
		return x.V, nil
	case query.Ref:
		return objectIDFromRef(x)
	case query.Select:
		get, ok := x.From.(query.Get)
		if !ok {
			return nil, fmt.Errorf("select source %T is not a get", x.From)
		}
		raw, err := e.rawGet(ctx, get)
		if err != nil {
			return nil, err
		}
		if x.Path == query.RefPath {
			return raw[fieldID], nil
		}
		v, ok := raw[x.Path]
		if !ok {
			return nil, fmt.Errorf("field %q: %w", x.Path, ErrNotFound)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("expression %T does not evaluate to a value", expr)
	}
}

func (e *MongoDBExecutor) create(ctx context.Context, c query.Create) (Document, error) {
	insert := func(opCtx context.Context) (Document, error) {
		fields := bson.M{}
		for name, valueExpr := range c.Data {
			v, err := e.eval(opCtx, valueExpr)
			if err != nil {
				return nil, err
			}
			fields[name] = v
		}

		res, err := e.store.InsertOne(opCtx, c.Collection, fields)
		if err != nil {
			e.logger.WithContext(opCtx).Error("insert failed", "collection", c.Collection, "error", err)
			return nil, &StoreError{Op: "insert " + c.Collection, Err: err}
		}
		fields[fieldID] = res.InsertedID
		return normalizeDocument(fields), nil
	}

	if e.transactional && hasDeferredLookup(c.Data) {
		out, err := e.store.WithTransaction(ctx, func(txCtx context.Context) (interface{}, error) {
			return insert(txCtx)
		})
		if err != nil {
			return nil, passthroughOrStoreError("transaction "+c.Collection, err)
		}
		return out.(Document), nil
	}
	return insert(ctx)
}

// hasDeferredLookup reports whether any data value still needs resolution
// at execution time.
func hasDeferredLookup(data query.Doc) bool {
	for _, v := range data {
		switch v.(type) {
		case query.Value, query.Ref:
		default:
			return true
		}
	}
	return false
}

// passthroughOrStoreError keeps executor-level errors intact and wraps
// anything else as a store failure.
func passthroughOrStoreError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidCursor) || IsStoreError(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

package document

import (
	"fmt"
	"time"

	"github.com/chirpnet/chirp/pkg/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fieldID is MongoDB's primary reference field.
const fieldID = "_id"

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

func normalizePageSize(size, def, max int) int {
	if size <= 0 {
		return def
	}
	if size > max {
		return max
	}
	return size
}

// objectIDFromRef parses the opaque reference id. An unparsable id cannot
// name any document, so it reports not-found rather than a store failure.
func objectIDFromRef(ref query.Ref) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(ref.ID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s %q: %w", ref.Collection, ref.ID, ErrNotFound)
	}
	return oid, nil
}

// cursorObjectID parses an opaque page cursor. Nil means first page.
func cursorObjectID(after string) (*primitive.ObjectID, error) {
	if after == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(after)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", after, ErrInvalidCursor)
	}
	return &oid, nil
}

// joinPipeline compiles a Join(Match(src), with) into a single aggregation:
// match the source index term, look up documents of the target index whose
// term field equals the source index value field, and paginate the joined
// set in reference order.
func joinPipeline(src, with query.Index, term interface{}, after *primitive.ObjectID, size int) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: src.Term, Value: term}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: with.Collection},
			{Key: "localField", Value: src.Value},
			{Key: "foreignField", Value: with.Term},
			{Key: "as", Value: "joined"},
		}}},
		{{Key: "$unwind", Value: "$joined"}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$joined"}}}},
	}
	if after != nil {
		pipeline = append(pipeline, bson.D{
			{Key: "$match", Value: bson.D{{Key: fieldID, Value: bson.D{{Key: "$gt", Value: *after}}}}},
		})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: fieldID, Value: 1}}}},
		bson.D{{Key: "$limit", Value: int64(size + 1)}},
	)
	return pipeline
}

// buildPage trims an over-fetched result set to size and derives the next
// cursor from the last kept document.
func buildPage(raw []bson.M, size int) Page {
	page := Page{Data: make([]Document, 0, len(raw))}

	hasMore := len(raw) > size
	if hasMore {
		raw = raw[:size]
	}
	for _, doc := range raw {
		page.Data = append(page.Data, normalizeDocument(doc))
	}
	if hasMore && len(raw) > 0 {
		if oid, ok := raw[len(raw)-1][fieldID].(primitive.ObjectID); ok {
			page.After = oid.Hex()
		}
	}
	return page
}

// normalizeDocument converts driver-specific values into the stable shapes
// callers see: reference ids as hex strings under query.RefPath, timestamps
// as UTC time.Time.
func normalizeDocument(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == fieldID {
			k = query.RefPath
		}
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case time.Time:
		return x.UTC()
	case bson.M:
		return normalizeDocument(x)
	case bson.D:
		return normalizeDocument(x.Map())
	case bson.A:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

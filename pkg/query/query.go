// Package query composes document store expressions without executing
// them. An expression is a pure value: building one performs no I/O, and
// lookups nested inside it stay unresolved until an executor runs the
// whole expression as a single logical operation.
package query

// RefPath selects a document's own reference id.
const RefPath = "ref"

// Expr is a composable, not-yet-executed store expression.
type Expr interface {
	expr()
}

// Value wraps a literal.
type Value struct {
	V interface{}
}

// Ref names a document by collection and opaque id.
type Ref struct {
	Collection string
	ID         string
}

// Match selects the documents of an index whose term equals the given
// terms. Terms may themselves be deferred expressions.
type Match struct {
	Index Index
	Terms []Expr
}

// Get reads the single document behind a Ref or Match.
type Get struct {
	From Expr
}

// Select projects one field out of the document an expression produces.
type Select struct {
	Path string
	From Expr
}

// Paginate bounds a set expression to one page. Size zero selects the
// default page size; After is an opaque cursor, empty for the first page.
type Paginate struct {
	From  Expr
	Size  int
	After string
}

// Join maps each value produced by the source index onto the documents of
// the target index keyed by that value.
type Join struct {
	Source Expr
	With   Index
}

// Doc is the field set of a document under construction. Values may be
// deferred expressions resolved at execution time.
type Doc map[string]Expr

// Create inserts a new document and produces it.
type Create struct {
	Collection string
	Data       Doc
}

func (Value) expr()    {}
func (Ref) expr()      {}
func (Match) expr()    {}
func (Get) expr()      {}
func (Select) expr()   {}
func (Paginate) expr() {}
func (Join) expr()     {}
func (Create) expr()   {}

// ResolveUserRef composes a lookup of a user's reference by name. The
// lookup stays unresolved until executed, so it can be nested inside a
// dependent expression instead of being resolved up front by the caller.
func ResolveUserRef(name string) Expr {
	return Select{
		Path: RefPath,
		From: Get{From: Match{Index: UsersByName, Terms: []Expr{Value{V: name}}}},
	}
}

// TweetCreate composes the creation of a tweet owned by userRef.
func TweetCreate(userRef Expr, text string, createdAt Expr) Expr {
	return Create{
		Collection: Tweets,
		Data: Doc{
			FieldUser:      userRef,
			FieldText:      Value{V: text},
			FieldCreatedAt: createdAt,
		},
	}
}

// TweetGet composes a read of a single tweet by its reference id.
func TweetGet(id string) Expr {
	return Get{From: Ref{Collection: Tweets, ID: id}}
}

// TweetsByUserPage composes one page of a user's tweets in reference
// order.
func TweetsByUserPage(userRef Expr, size int, after string) Expr {
	return Paginate{
		From:  Match{Index: TweetsByUser, Terms: []Expr{userRef}},
		Size:  size,
		After: after,
	}
}

// RelationshipCreate composes the creation of a follow edge.
func RelationshipCreate(followerRef, followeeRef Expr, createdAt Expr) Expr {
	return Create{
		Collection: Relationships,
		Data: Doc{
			FieldFollower:  followerRef,
			FieldFollowee:  followeeRef,
			FieldCreatedAt: createdAt,
		},
	}
}

// FeedPage composes one page of the feed of followerRef: the followees
// produced by the relationship index joined onto their tweets.
func FeedPage(followerRef Expr, size int, after string) Expr {
	return Paginate{
		From: Join{
			Source: Match{Index: RelationshipsByFollower, Terms: []Expr{followerRef}},
			With:   TweetsByUser,
		},
		Size:  size,
		After: after,
	}
}

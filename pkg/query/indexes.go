package query

// Collection names.
const (
	Users         = "users"
	Tweets        = "tweets"
	Relationships = "relationships"
)

// Document field names.
const (
	FieldName      = "name"
	FieldUser      = "user"
	FieldText      = "text"
	FieldFollower  = "follower"
	FieldFollowee  = "followee"
	FieldCreatedAt = "created_at"
)

// Index describes a named access path over a collection: documents are
// matched on Term, and the index produces the Value field of each match.
// RefPath as Value means the index produces the documents themselves.
type Index struct {
	Name       string
	Collection string
	Term       string
	Value      string
}

// UsersByName resolves user names to user documents.
var UsersByName = Index{
	Name:       "users_by_name",
	Collection: Users,
	Term:       FieldName,
	Value:      RefPath,
}

// TweetsByUser lists a user's tweets by owner reference.
var TweetsByUser = Index{
	Name:       "tweets_by_user",
	Collection: Tweets,
	Term:       FieldUser,
	Value:      RefPath,
}

// RelationshipsByFollower produces the followees of a follower, which is
// what makes it joinable onto TweetsByUser.
var RelationshipsByFollower = Index{
	Name:       "relationships_by_follower",
	Collection: Relationships,
	Term:       FieldFollower,
	Value:      FieldFollowee,
}

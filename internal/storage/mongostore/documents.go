package mongostore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/tyemirov/moviecatalog/internal/authkit"
	"github.com/tyemirov/moviecatalog/internal/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Email              string             `bson:"email"`
	Name               string             `bson:"name"`
	PasswordHash       string             `bson:"password"`
	RefreshTokenDigest string             `bson:"refreshToken,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt"`
}

func (document userDocument) toUser() authkit.User {
	return authkit.User{
		ID:                 document.ID.Hex(),
		Email:              document.Email,
		Name:               document.Name,
		PasswordHash:       document.PasswordHash,
		RefreshTokenDigest: document.RefreshTokenDigest,
		CreatedAt:          document.CreatedAt,
	}
}

type movieDocument struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Title   string             `bson:"title"`
	Year    lenientInt         `bson:"year"`
	Genres  []string           `bson:"genres"`
	Runtime lenientInt         `bson:"runtime"`
	Cast    []string           `bson:"cast"`
	Plot    string             `bson:"plot"`
	Poster  string             `bson:"poster,omitempty"`
}

func newMovieDocument(movie catalog.Movie) movieDocument {
	return movieDocument{
		Title:   movie.Title,
		Year:    lenientInt(movie.Year),
		Genres:  nonNil(movie.Genres),
		Runtime: lenientInt(movie.Runtime),
		Cast:    nonNil(movie.Cast),
		Plot:    movie.Plot,
		Poster:  movie.Poster,
	}
}

func (document movieDocument) toMovie() catalog.Movie {
	return catalog.Movie{
		ID:      document.ID.Hex(),
		Title:   document.Title,
		Year:    int(document.Year),
		Genres:  nonNil(document.Genres),
		Runtime: int(document.Runtime),
		Cast:    nonNil(document.Cast),
		Plot:    document.Plot,
		Poster:  document.Poster,
	}
}

// lenientInt decodes numeric movie fields from imported data, where a year may be stored
// as a double or as text such as "2011è".
type lenientInt int

func (value *lenientInt) UnmarshalBSONValue(valueType bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: valueType, Value: data}
	switch valueType {
	case bsontype.Int32:
		*value = lenientInt(raw.Int32())
	case bsontype.Int64:
		*value = lenientInt(raw.Int64())
	case bsontype.Double:
		*value = lenientInt(raw.Double())
	case bsontype.String:
		*value = lenientInt(leadingInteger(raw.StringValue()))
	case bsontype.Null, bsontype.Undefined:
		*value = 0
	default:
		return fmt.Errorf("movie_document.decode.%s: %s is not a number", driverLabel, valueType)
	}
	return nil
}

func leadingInteger(text string) int {
	trimmed := strings.TrimSpace(text)
	end := strings.IndexFunc(trimmed, func(character rune) bool { return !unicode.IsDigit(character) })
	if end == -1 {
		end = len(trimmed)
	}
	parsed, err := strconv.Atoi(trimmed[:end])
	if err != nil {
		return 0
	}
	return parsed
}

type commentDocument struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	MovieID primitive.ObjectID `bson:"movie_id"`
	Name    string             `bson:"name"`
	Email   string             `bson:"email"`
	Text    string             `bson:"text"`
	Date    time.Time          `bson:"date"`
}

func (document commentDocument) toComment() catalog.Comment {
	return catalog.Comment{
		ID:      document.ID.Hex(),
		MovieID: document.MovieID.Hex(),
		Name:    document.Name,
		Email:   document.Email,
		Text:    document.Text,
		Date:    document.Date.UTC(),
	}
}

// parseObjectIDs converts hex identifiers, failing with catalog.ErrInvalidID on the first bad one.
func parseObjectIDs(operation string, identifiers ...string) ([]primitive.ObjectID, error) {
	parsed := make([]primitive.ObjectID, 0, len(identifiers))
	for _, identifier := range identifiers {
		objectID, err := primitive.ObjectIDFromHex(identifier)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", operation, driverLabel, catalog.ErrInvalidID)
		}
		parsed = append(parsed, objectID)
	}
	return parsed, nil
}

func moviePatchDocument(patch catalog.MoviePatch) bson.D {
	fields := bson.D{}
	if patch.Title != nil {
		fields = append(fields, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Year != nil {
		fields = append(fields, bson.E{Key: "year", Value: *patch.Year})
	}
	if patch.Genres != nil {
		fields = append(fields, bson.E{Key: "genres", Value: nonNil(*patch.Genres)})
	}
	if patch.Runtime != nil {
		fields = append(fields, bson.E{Key: "runtime", Value: *patch.Runtime})
	}
	if patch.Cast != nil {
		fields = append(fields, bson.E{Key: "cast", Value: nonNil(*patch.Cast)})
	}
	if patch.Plot != nil {
		fields = append(fields, bson.E{Key: "plot", Value: *patch.Plot})
	}
	if patch.Poster != nil {
		fields = append(fields, bson.E{Key: "poster", Value: *patch.Poster})
	}
	return fields
}

func commentPatchDocument(patch catalog.CommentPatch) bson.D {
	fields := bson.D{}
	if patch.Name != nil {
		fields = append(fields, bson.E{Key: "name", Value: *patch.Name})
	}
	if patch.Email != nil {
		fields = append(fields, bson.E{Key: "email", Value: *patch.Email})
	}
	if patch.Text != nil {
		fields = append(fields, bson.E{Key: "text", Value: *patch.Text})
	}
	return fields
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

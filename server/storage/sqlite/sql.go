package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"strings"
	"time"

	"github.com/cyp0633/caldavquery/server/storage/query"
	msqlite "modernc.org/sqlite"
)

// Entity is the table the translator selects from.
const Entity = "items"

// timeFormat is fixed width so that text comparison orders instants.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// foldFunction lower-cases text with full Unicode case mapping. The built-in
// lower() only folds ASCII.
const foldFunction = "casefold"

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(foldFunction, 1, casefold)
}

func casefold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// ToSQL rewrites a translated query into SQLite text selecting item UIDs,
// with its bindings as sql.Named arguments. Case-insensitive comparisons
// call casefold instead of lower. q must come from a translator
// configured with WithEntity(Entity).
func ToSQL(q query.Query) (string, []any) {
	text := strings.Replace(q.Text, "select i from ", "select i.uid from ", 1)
	text = strings.Replace(text, " join i.collection pd", " join collections pd on pd.id = i.collection", 1)
	text = strings.ReplaceAll(text, "lower(i.", foldFunction+"(i.")

	args := make([]any, 0, len(q.Bindings))
	for _, b := range q.Bindings {
		args = append(args, sql.Named(b.Name, sqlValue(b.Value)))
	}
	return text, args
}

// sqlValue converts a binding to its stored column representation.
func sqlValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return formatTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return formatTime(*x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

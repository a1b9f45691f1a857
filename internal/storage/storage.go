package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sitematch/backend/internal/recommend"
)

// QueryLog is the append-only history of recommendation requests.
type QueryLog interface {
	Append(ctx context.Context, entry recommend.QueryLogEntry) error
	Entries(ctx context.Context) ([]recommend.QueryLogEntry, error)
	Close() error
}

// favoritesSeparator delimits identifiers in a stored favorites list.
const favoritesSeparator = ";"

// EncodeFavorites serializes identifiers as a ";"-delimited list.
func EncodeFavorites(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, favoritesSeparator)
}

// ParseFavorites parses a stored favorites list. Besides the ";"-delimited
// form it accepts bracketed, comma-separated lists with optionally quoted
// elements such as "['1177', '2265']", which is how older logs stored them.
// Every element must be a decimal integer.
func ParseFavorites(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ','
	})
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(strings.TrimSpace(f), `'"`)
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid identifier %q in favorites list", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

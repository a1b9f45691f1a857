package recommend

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sitematch/backend/internal/corpus"
	"github.com/sitematch/backend/internal/search"
)

var (
	// ErrEmptyCorpus means the filtered corpus has no records.
	ErrEmptyCorpus = search.ErrEmptyCorpus
	// ErrNoMatch means none of the favorites exist in the filtered corpus.
	ErrNoMatch = errors.New("no matching site identifiers found")
	// ErrInvalidIdentifier means a favorite is not an integer identifier.
	ErrInvalidIdentifier = errors.New("invalid site identifier")
)

// Defaults for result sizes.
const (
	DefaultLimit              = 10
	DefaultCollaborativeLimit = 5
)

// collaborativeMarker is the JSON form of the sentinel score.
const collaborativeMarker = "collaborative"

// Score is either a similarity value or the collaborative sentinel.
type Score struct {
	Value         float64
	Collaborative bool
}

// Similarity returns a numeric score.
func Similarity(v float64) Score {
	return Score{Value: v}
}

// CollaborativeScore returns the sentinel score.
func CollaborativeScore() Score {
	return Score{Collaborative: true}
}

func (s Score) String() string {
	if s.Collaborative {
		return collaborativeMarker
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if s.Collaborative {
		return []byte(strconv.Quote(collaborativeMarker)), nil
	}
	return strconv.AppendFloat(nil, s.Value, 'g', -1, 64), nil
}

func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == strconv.Quote(collaborativeMarker) {
		*s = CollaborativeScore()
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid score %s", data)
	}
	*s = Similarity(v)
	return nil
}

// Result is one recommended site. Field order is the output contract.
type Result struct {
	ID          int    `json:"APPIC Number"`
	Score       Score  `json:"similarity_score"`
	Department  string `json:"Site / Department"`
	City        string `json:"City"`
	State       string `json:"State"`
	Country     string `json:"Country"`
	DueDate     string `json:"Application Due Date"`
	Description string `json:"web_data"`
}

func newResult(rec corpus.SiteRecord, score Score) Result {
	return Result{
		ID:          rec.ID,
		Score:       score,
		Department:  rec.Department,
		City:        rec.City,
		State:       rec.State,
		Country:     rec.Country,
		DueDate:     rec.DueDate,
		Description: rec.Description,
	}
}

// QueryLogEntry is one past request: the favorites submitted together and the
// category selection used.
type QueryLogEntry struct {
	ID        string
	CreatedAt time.Time
	Favorites []int
	Program   string
	Degree    string
}

// favoriteSet returns the distinct favorites in first-seen order.
func favoriteSet(favorites []int) ([]int, map[int]struct{}) {
	set := make(map[int]struct{}, len(favorites))
	ordered := make([]int, 0, len(favorites))
	for _, id := range favorites {
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		ordered = append(ordered, id)
	}
	return ordered, set
}

package corpus

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned when a program or degree selection does not
// name a flag column of the corpus.
var ErrUnknownCategory = errors.New("unknown category")

// SiteRecord is one training site.
type SiteRecord struct {
	ID          int
	Department  string
	City        string
	State       string
	Country     string
	DueDate     string
	Description string
	Website     string
	Flags       map[string]bool
}

// Corpus is an ordered collection of site records with unique identifiers.
type Corpus struct {
	Records []SiteRecord
	// FlagNames lists the category columns in header order.
	FlagNames []string
	// Version identifies the snapshot the records were loaded from.
	Version string

	byID map[int]int
}

// New builds a corpus from records, rejecting duplicate identifiers.
func New(records []SiteRecord, flagNames []string, version string) (*Corpus, error) {
	byID := make(map[int]int, len(records))
	for i, rec := range records {
		if _, dup := byID[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate site identifier %d", rec.ID)
		}
		byID[rec.ID] = i
	}
	return &Corpus{
		Records:   records,
		FlagNames: flagNames,
		Version:   version,
		byID:      byID,
	}, nil
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	return len(c.Records)
}

// Get looks up a record by identifier.
func (c *Corpus) Get(id int) (SiteRecord, bool) {
	i, ok := c.byID[id]
	if !ok {
		return SiteRecord{}, false
	}
	return c.Records[i], true
}

// HasFlag reports whether name is one of the category columns.
func (c *Corpus) HasFlag(name string) bool {
	for _, f := range c.FlagNames {
		if f == name {
			return true
		}
	}
	return false
}

// Filter returns the records whose program and degree flags are both set,
// in corpus order. The returned slice is a copy; the corpus is not modified.
func (c *Corpus) Filter(program, degree string) ([]SiteRecord, error) {
	if !c.HasFlag(program) {
		return nil, fmt.Errorf("program type %q: %w", program, ErrUnknownCategory)
	}
	if !c.HasFlag(degree) {
		return nil, fmt.Errorf("degree type %q: %w", degree, ErrUnknownCategory)
	}

	subset := make([]SiteRecord, 0)
	for _, rec := range c.Records {
		if rec.Flags[program] && rec.Flags[degree] {
			subset = append(subset, rec)
		}
	}
	return subset, nil
}

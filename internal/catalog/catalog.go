// Package catalog provides the BlockIQ question pool. The canonical pool
// is embedded as YAML; the seed command copies it into MongoDB and the
// server may read it back from there.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"blockiq/internal/model"
)

// Size is the number of questions a valid catalog holds
const Size = 100

//go:embed questions.yaml
var embedded []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

// Source supplies the full question pool
type Source interface {
	Questions(ctx context.Context) ([]model.Question, error)
}

// Parse decodes a YAML question list without validating it
func Parse(data []byte) ([]model.Question, error) {
	var qs []model.Question
	if err := yaml.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return qs, nil
}

// Validate checks every question and the pool as a whole: exactly Size
// entries with unique ids.
func Validate(qs []model.Question) error {
	if len(qs) != Size {
		return fmt.Errorf("%w: expected %d questions, got %d", ErrInvalidCatalog, Size, len(qs))
	}
	seen := make(map[int]bool, len(qs))
	for i := range qs {
		if err := qs[i].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		if seen[qs[i].ID] {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidCatalog, qs[i].ID)
		}
		seen[qs[i].ID] = true
	}
	return nil
}

// Embedded returns the validated built-in pool
func Embedded() ([]model.Question, error) {
	qs, err := Parse(embedded)
	if err != nil {
		return nil, err
	}
	if err := Validate(qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// Static serves a fixed, already loaded pool
type Static struct {
	questions []model.Question
}

func NewStatic(qs []model.Question) *Static {
	return &Static{questions: qs}
}

func (s *Static) Questions(_ context.Context) ([]model.Question, error) {
	return s.questions, nil
}

// Cached loads from an underlying source once, validates the result and
// serves it from memory afterwards. A failed load is retried on the next
// call.
type Cached struct {
	src Source

	mu        sync.Mutex
	questions []model.Question
}

func NewCached(src Source) *Cached {
	return &Cached{src: src}
}

// Load forces the initial load; the server calls it at start-up so a bad
// catalog fails fast
func (c *Cached) Load(ctx context.Context) error {
	qs, err := c.src.Questions(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if err := Validate(qs); err != nil {
		return err
	}
	c.mu.Lock()
	c.questions = qs
	c.mu.Unlock()
	return nil
}

func (c *Cached) Questions(ctx context.Context) ([]model.Question, error) {
	c.mu.Lock()
	qs := c.questions
	c.mu.Unlock()
	if qs != nil {
		return qs, nil
	}

	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questions, nil
}

// CategoryCount is the number of questions filed under one category
type CategoryCount struct {
	Category model.Category `json:"category"`
	Count    int            `json:"count"`
}

// CountByCategory tallies qs per category in display order. Categories
// with no questions are included with a zero count.
func CountByCategory(qs []model.Question) []CategoryCount {
	counts := make(map[model.Category]int, len(model.Categories))
	for _, q := range qs {
		counts[q.Category]++
	}
	out := make([]CategoryCount, 0, len(model.Categories))
	for _, c := range model.Categories {
		out = append(out, CategoryCount{Category: c, Count: counts[c]})
	}
	return out
}

// SortByID orders qs by ascending id in place
func SortByID(qs []model.Question) {
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
}

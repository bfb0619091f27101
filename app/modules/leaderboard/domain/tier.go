package leaderboarddomain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNoTiers       = errors.New("tier table is empty")
	ErrTierRange     = errors.New("tier min exceeds max")
	ErrTierCoverage  = errors.New("tiers must cover [0, max_total] without gaps or overlaps")
	ErrInvalidMaxTot = errors.New("max total must be positive")
)

// Tier is a named band of total score, both bounds inclusive.
type Tier struct {
	Name        string `yaml:"name" json:"name"`
	ShortLabel  string `yaml:"short_label" json:"short_label"`
	Description string `yaml:"description" json:"description"`
	Min         int    `yaml:"min" json:"min"`
	Max         int    `yaml:"max" json:"max"`
}

// Contains reports whether score falls in the tier.
func (t Tier) Contains(score int) bool {
	return score >= t.Min && score <= t.Max
}

// TierTable classifies totals. Tiers are kept highest first.
type TierTable struct {
	tiers    []Tier
	maxTotal int
}

// DefaultMaxTotal is the highest attainable total with the default catalog.
const DefaultMaxTotal = 1100

// DefaultTiers returns the stock classification.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "Cyber Guardian Elite", ShortLabel: "Elite", Description: "Excellent digital security practice.", Min: 1000, Max: DefaultMaxTotal},
		{Name: "Cyber Guardian Expert", ShortLabel: "Expert", Description: "Solid command of secure habits.", Min: 800, Max: 999},
		{Name: "Cyber Guardian Apprentice", ShortLabel: "Apprentice", Description: "Adequate knowledge with room to improve.", Min: 600, Max: 799},
		{Name: "Crew at Risk", ShortLabel: "At risk", Description: "Reinforce protocols and review good practice.", Min: 0, Max: 599},
	}
}

// NewTierTable validates that tiers partition [0, maxTotal].
func NewTierTable(tiers []Tier, maxTotal int) (*TierTable, error) {
	if maxTotal <= 0 {
		return nil, ErrInvalidMaxTot
	}
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	next := 0
	for _, t := range sorted {
		if t.Min > t.Max {
			return nil, fmt.Errorf("%w: %s", ErrTierRange, t.Name)
		}
		if t.Min != next {
			return nil, fmt.Errorf("%w: %s starts at %d, expected %d", ErrTierCoverage, t.Name, t.Min, next)
		}
		next = t.Max + 1
	}
	if next-1 != maxTotal {
		return nil, fmt.Errorf("%w: last tier ends at %d, expected %d", ErrTierCoverage, next-1, maxTotal)
	}

	// highest first
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return &TierTable{tiers: sorted, maxTotal: maxTotal}, nil
}

// MustDefaultTierTable returns the stock table.
func MustDefaultTierTable() *TierTable {
	t, err := NewTierTable(DefaultTiers(), DefaultMaxTotal)
	if err != nil {
		panic(err)
	}
	return t
}

// MaxTotal is the upper bound of the highest tier.
func (t *TierTable) MaxTotal() int { return t.maxTotal }

// Tiers returns the table highest first.
func (t *TierTable) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Classify returns the tier containing score. Out-of-range scores are clamped
// into [0, MaxTotal] first, so every int maps to a tier.
func (t *TierTable) Classify(score int) Tier {
	if score < 0 {
		score = 0
	}
	if score > t.maxTotal {
		score = t.maxTotal
	}
	for _, tier := range t.tiers {
		if tier.Contains(score) {
			return tier
		}
	}
	return t.tiers[len(t.tiers)-1]
}

// Package stationdomain describes the station catalog and write policies.
package stationdomain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
)

var (
	ErrEmptyCatalog     = errors.New("station catalog is empty")
	ErrDuplicateStation = errors.New("duplicate station key")
	ErrInvalidMaxScore  = errors.New("station max score must be positive")
	ErrInvalidPolicy    = errors.New("unknown write policy")
)

// Definition is one station in the catalog.
type Definition struct {
	Key        sharedtypes.StationKey `yaml:"key" json:"station_key"`
	Title      string                 `yaml:"title" json:"title"`
	MaxScore   int                    `yaml:"max_score" json:"max_score"`
	OrderIndex int                    `yaml:"order_index" json:"order_index"`
}

// Catalog is an immutable, ordered set of station definitions.
type Catalog struct {
	ordered []Definition
	byKey   map[sharedtypes.StationKey]Definition
}

// NewCatalog validates defs and orders them by OrderIndex, then key.
func NewCatalog(defs []Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		ordered: make([]Definition, 0, len(defs)),
		byKey:   make(map[sharedtypes.StationKey]Definition, len(defs)),
	}
	for _, d := range defs {
		d.Key = sharedtypes.StationKey(strings.TrimSpace(string(d.Key)))
		if d.Key == "" {
			return nil, sharedtypes.ErrEmptyStation
		}
		if d.MaxScore <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMaxScore, d.Key)
		}
		if _, dup := c.byKey[d.Key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStation, d.Key)
		}
		c.byKey[d.Key] = d
		c.ordered = append(c.ordered, d)
	}
	sort.SliceStable(c.ordered, func(i, j int) bool {
		if c.ordered[i].OrderIndex != c.ordered[j].OrderIndex {
			return c.ordered[i].OrderIndex < c.ordered[j].OrderIndex
		}
		return c.ordered[i].Key < c.ordered[j].Key
	})
	return c, nil
}

// Lookup returns the definition for key.
func (c *Catalog) Lookup(key sharedtypes.StationKey) (Definition, bool) {
	d, ok := c.byKey[key]
	return d, ok
}

// Ordered returns a copy of the definitions in play order.
func (c *Catalog) Ordered() []Definition {
	out := make([]Definition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// TotalMax sums MaxScore over every station not in exclude.
func (c *Catalog) TotalMax(exclude ...sharedtypes.StationKey) int {
	skip := make(map[sharedtypes.StationKey]struct{}, len(exclude))
	for _, k := range exclude {
		skip[k] = struct{}{}
	}
	total := 0
	for _, d := range c.ordered {
		if _, ok := skip[d.Key]; ok {
			continue
		}
		total += d.MaxScore
	}
	return total
}

// ClampScore bounds score into [0, MaxScore].
func (d Definition) ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > d.MaxScore {
		return d.MaxScore
	}
	return score
}

// WritePolicy selects how a second write for the same (run, station) resolves.
type WritePolicy int

const (
	// PolicyOverwrite is last write wins.
	PolicyOverwrite WritePolicy = iota
	// PolicyKeepHigher keeps the greater of the stored and new score; mode and meta still update.
	PolicyKeepHigher
)

func (p WritePolicy) String() string {
	switch p {
	case PolicyKeepHigher:
		return "best"
	default:
		return "overwrite"
	}
}

// ParsePolicy maps the HTTP query value to a policy. Empty means overwrite.
func ParsePolicy(s string) (WritePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite", "latest":
		return PolicyOverwrite, nil
	case "best", "max", "keep_higher":
		return PolicyKeepHigher, nil
	}
	return PolicyOverwrite, ErrInvalidPolicy
}

// DefaultDefinitions is the built-in catalog used when configuration supplies none.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Key: "phishing", Title: "Phishing inbox", MaxScore: 200, OrderIndex: 1},
		{Key: "passwords", Title: "Password vault", MaxScore: 200, OrderIndex: 2},
		{Key: "firewall", Title: "Firewall triage", MaxScore: 200, OrderIndex: 3},
		{Key: "drones", Title: "Drone signals", MaxScore: 200, OrderIndex: 4},
		{Key: "control", Title: "Control room", MaxScore: 200, OrderIndex: 5},
		{Key: "master_reset", Title: "Master reset", MaxScore: 100, OrderIndex: 6},
	}
}

package sharedtypes

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// StationKey identifies a station in the catalog.
type StationKey string

func (k StationKey) String() string { return string(k) }

// Mode records how a station was played.
type Mode string

const (
	ModeWeb      Mode = "web"
	ModeInPerson Mode = "in_person"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeWeb || m == ModeInPerson
}

// ParseMode accepts the canonical names plus the legacy "presencial" alias.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "web":
		return ModeWeb, nil
	case "in_person", "in-person", "presencial":
		return ModeInPerson, nil
	}
	return "", ErrInvalidMode
}

var (
	ErrInvalidMode  = errors.New("invalid mode")
	ErrEmptyRunID   = errors.New("run id is required")
	ErrEmptyStation = errors.New("station key is required")
)

// Session is the client-held identity of a team's run. It is always passed
// explicitly; nothing in the engine reads ambient session state.
type Session struct {
	RunID    uuid.UUID `json:"run_id"`
	TeamName string    `json:"team_name"`
}

// Validate checks that the session carries a run id.
func (s Session) Validate() error {
	if s.RunID == uuid.Nil {
		return ErrEmptyRunID
	}
	return nil
}

// NormalizedTeamName trims the team name.
func (s Session) NormalizedTeamName() string {
	return strings.TrimSpace(s.TeamName)
}

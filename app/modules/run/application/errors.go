package runservice

import "errors"

var (
	// ErrRunNotFound is returned when the run id is unknown.
	ErrRunNotFound = errors.New("run not found")
	// ErrTeamNameTooLong guards the team_name column width.
	ErrTeamNameTooLong = errors.New("team name exceeds 80 characters")
)

package leaderboardservice

import "errors"

// ErrExportFailed is returned when the spreadsheet cannot be produced.
var ErrExportFailed = errors.New("leaderboard export failed")

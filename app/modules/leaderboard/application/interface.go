package leaderboardservice

import (
	"context"
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/domain"
)

// Service computes the leaderboard on every read.
type Service interface {
	// GetLeaderboard ranks every run. A non-empty query filters by team name after ranking.
	GetLeaderboard(ctx context.Context, query string) (*Board, error)

	// RenderChart draws the top standings as a PNG bar chart.
	RenderChart(ctx context.Context, limit int) ([]byte, error)

	// Export writes the board, optionally filtered, as an XLSX workbook.
	Export(ctx context.Context, query string) ([]byte, error)

	// Classify maps a total onto the tier table.
	Classify(total int) leaderboarddomain.Tier
}

// Board is a computed leaderboard.
type Board struct {
	Standings   []leaderboarddomain.Standing `json:"standings"`
	Teams       int                          `json:"teams"`
	Query       string                       `json:"query,omitempty"`
	Tiers       []leaderboarddomain.Tier     `json:"tiers"`
	GeneratedAt time.Time                    `json:"generated_at"`
}

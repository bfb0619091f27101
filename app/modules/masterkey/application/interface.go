package masterkeyservice

import (
	"context"
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/domain"
	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
)

// Service validates the assembled master key and grants the completion bonus.
type Service interface {
	Validate(ctx context.Context, req ValidateRequest) (*Outcome, error)
	Preview(ctx context.Context, runID uuid.UUID, startedAt time.Time) (*Preview, error)
}

// Ledger is the part of the station ledger the validator reads and writes through.
type Ledger interface {
	ListForRun(ctx context.Context, runID uuid.UUID, exclude ...sharedtypes.StationKey) ([]stationservice.StationResult, error)
	Record(ctx context.Context, req stationservice.RecordRequest) (*stationservice.StationResult, error)
}

// TierClassifier maps a display total onto a tier.
type TierClassifier interface {
	Classify(total int) leaderboarddomain.Tier
}

// Config holds the final-station parameters.
type Config struct {
	FinalStationKey sharedtypes.StationKey
	Bonus           scoringdomain.CompletionBonusConfig
	ScoreMax        int
}

// ValidateRequest is one master key submission. StartedAt is when the team
// opened the final station; zero means no timer and earns the full fast bonus.
type ValidateRequest struct {
	Session   sharedtypes.Session
	Mode      sharedtypes.Mode
	Fragments []string
	StartedAt time.Time
}

// Outcome is the validation result. A mismatch is Valid=false with nothing written.
type Outcome struct {
	Valid        bool                          `json:"valid"`
	Needed       int                           `json:"needed"`
	Submitted    int                           `json:"submitted"`
	StationTotal int                           `json:"station_total"`
	Bonus        *scoringdomain.BonusBreakdown `json:"bonus,omitempty"`
	DisplayTotal int                           `json:"display_total,omitempty"`
	Tier         *leaderboarddomain.Tier       `json:"tier,omitempty"`
	ElapsedSec   int                           `json:"elapsed_sec"`
	Result       *stationservice.StationResult `json:"result,omitempty"`
}

// Preview is what the final station shows before submission.
type Preview struct {
	RunID        uuid.UUID                    `json:"run_id"`
	Needed       int                          `json:"needed"`
	StationTotal int                          `json:"station_total"`
	Bonus        scoringdomain.BonusBreakdown `json:"bonus"`
	DisplayTotal int                          `json:"display_total"`
	Tier         leaderboarddomain.Tier       `json:"tier"`
	ElapsedSec   int                          `json:"elapsed_sec"`
	ScoreMax     int                          `json:"score_max"`
}

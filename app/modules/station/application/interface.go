package stationservice

import (
	"context"
	"time"

	runservice "github.com/Black-And-White-Club/keyquest/app/modules/run/application"
	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
)

// Service is the station result ledger.
type Service interface {
	Record(ctx context.Context, req RecordRequest) (*StationResult, error)
	RecordIfHigher(ctx context.Context, req RecordRequest) (*StationResult, error)
	ListForRun(ctx context.Context, runID uuid.UUID, exclude ...sharedtypes.StationKey) ([]StationResult, error)
	GetResult(ctx context.Context, runID uuid.UUID, key sharedtypes.StationKey) (*StationResult, error)
	Complete(ctx context.Context, req CompleteRequest) (*Completion, error)
	Progress(ctx context.Context, runID uuid.UUID) (*Progress, error)
	Catalog(ctx context.Context) ([]stationdomain.Definition, error)
	SyncCatalog(ctx context.Context, defs []stationdomain.Definition) error
}

// RunRegistry is the subset of the run service the ledger depends on.
type RunRegistry interface {
	EnsureRun(ctx context.Context, session sharedtypes.Session) (*runservice.RunInfo, error)
}

// FragmentIssuer hands out key fragments.
type FragmentIssuer interface {
	Issue() (string, error)
}

// RecordRequest is a single ledger write.
type RecordRequest struct {
	Session    sharedtypes.Session
	StationKey sharedtypes.StationKey
	Mode       sharedtypes.Mode
	Score      int
	KeyPart    *string
	Meta       map[string]any
}

// CompleteRequest carries a mini-game's raw signals. In-person completions skip the
// calculator and use ReportedScore as entered by staff.
type CompleteRequest struct {
	Session       sharedtypes.Session
	StationKey    sharedtypes.StationKey
	Mode          sharedtypes.Mode
	Signals       scoringdomain.Signals
	ReportedScore int
	Policy        stationdomain.WritePolicy
}

// StationResult is the public view of a ledger row.
type StationResult struct {
	RunID      uuid.UUID              `json:"run_id"`
	StationKey sharedtypes.StationKey `json:"station_key"`
	Mode       sharedtypes.Mode       `json:"mode"`
	Score      int                    `json:"score"`
	KeyPart    *string                `json:"key_part,omitempty"`
	Meta       map[string]any         `json:"meta"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Completion is the outcome of Complete.
type Completion struct {
	Result   *StationResult `json:"result"`
	Fragment *string        `json:"fragment,omitempty"`
	Earned   bool           `json:"earned_fragment"`
}

// StationProgress is one catalog entry joined with the run's row, if any.
type StationProgress struct {
	StationKey sharedtypes.StationKey `json:"station_key"`
	Title      string                 `json:"title"`
	MaxScore   int                    `json:"max_score"`
	Done       bool                   `json:"done"`
	Score      int                    `json:"score"`
	Mode       sharedtypes.Mode       `json:"mode,omitempty"`
	KeyPart    *string                `json:"key_part,omitempty"`
}

// Progress summarises a run against the catalog.
type Progress struct {
	RunID              uuid.UUID         `json:"run_id"`
	Stations           []StationProgress `json:"stations"`
	StationsDone       int               `json:"stations_done"`
	FragmentsCollected int               `json:"fragments_collected"`
	TotalScore         int               `json:"total_score"`
	TotalMax           int               `json:"total_max"`
	Percent            int               `json:"percent"`
}

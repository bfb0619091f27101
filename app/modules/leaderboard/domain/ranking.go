package leaderboarddomain

import (
	"sort"
	"strings"
	"time"

	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/google/uuid"
)

// UnnamedTeam is shown when neither the ledger nor the run carries a name.
const UnnamedTeam = "Unnamed team"

// Row is one ledger row joined with its run.
type Row struct {
	RunID        uuid.UUID
	StationKey   sharedtypes.StationKey
	Score        int
	MetaTeamName string
	RunTeamName  string
	RunCreatedAt time.Time
	UpdatedAt    time.Time
}

// Standing is one team's line on the board.
type Standing struct {
	Rank         int       `json:"rank"`
	RunID        uuid.UUID `json:"run_id"`
	TeamName     string    `json:"team_name"`
	TotalScore   int       `json:"total_score"`
	StationsDone int       `json:"stations_done"`
	HasMaster    bool      `json:"has_master"`
	Tier         Tier      `json:"tier"`
	CompletedAt  time.Time `json:"completed_at"`
	StartedAt    time.Time `json:"started_at"`
}

type group struct {
	standing    Standing
	nameAt      time.Time
	metaName    string
	runTeamName string
}

// Aggregate groups rows by run, sums scores and ranks the result. Ties on total
// go to the team that reached it first, then the older run, then the lower run id.
func Aggregate(rows []Row, finalKey sharedtypes.StationKey, tiers *TierTable) []Standing {
	groups := make(map[uuid.UUID]*group)
	order := make([]uuid.UUID, 0)

	for _, r := range rows {
		g, ok := groups[r.RunID]
		if !ok {
			g = &group{standing: Standing{RunID: r.RunID, StartedAt: r.RunCreatedAt}}
			groups[r.RunID] = g
			order = append(order, r.RunID)
		}

		g.standing.TotalScore += r.Score
		if r.StationKey == finalKey {
			g.standing.HasMaster = true
		} else {
			g.standing.StationsDone++
		}
		if r.UpdatedAt.After(g.standing.CompletedAt) {
			g.standing.CompletedAt = r.UpdatedAt
		}
		if name := strings.TrimSpace(r.MetaTeamName); name != "" && (g.metaName == "" || r.UpdatedAt.After(g.nameAt)) {
			g.metaName = name
			g.nameAt = r.UpdatedAt
		}
		if g.runTeamName == "" {
			g.runTeamName = strings.TrimSpace(r.RunTeamName)
		}
	}

	out := make([]Standing, 0, len(groups))
	for _, id := range order {
		g := groups[id]
		switch {
		case g.metaName != "":
			g.standing.TeamName = g.metaName
		case g.runTeamName != "":
			g.standing.TeamName = g.runTeamName
		default:
			g.standing.TeamName = UnnamedTeam
		}
		g.standing.Tier = tiers.Classify(g.standing.TotalScore)
		out = append(out, g.standing)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if !a.CompletedAt.Equal(b.CompletedAt) {
			return a.CompletedAt.Before(b.CompletedAt)
		}
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.Before(b.StartedAt)
		}
		return a.RunID.String() < b.RunID.String()
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Filter keeps standings whose team name contains query, case-insensitively.
// Ranks are those of the full board.
func Filter(standings []Standing, query string) []Standing {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return standings
	}
	out := make([]Standing, 0, len(standings))
	for _, s := range standings {
		if strings.Contains(strings.ToLower(s.TeamName), q) {
			out = append(out, s)
		}
	}
	return out
}

package leaderboardservice

import (
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/domain"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Leaderboard"

var exportHeader = []any{"Rank", "Team", "Total", "Stations done", "Master key", "Tier", "Tier description", "Last update (UTC)"}

// WriteStandingsWorkbook renders standings into a single-sheet XLSX file.
func WriteStandingsWorkbook(standings []leaderboarddomain.Standing, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Leaderboard",
		Created: generatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "A1", "H1", bold); err != nil {
		return nil, err
	}

	for i, s := range standings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		master := "no"
		if s.HasMaster {
			master = "yes"
		}
		row := []any{
			s.Rank,
			s.TeamName,
			s.TotalScore,
			s.StationsDone,
			master,
			s.Tier.Name,
			s.Tier.Description,
			s.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(exportSheet, "B", "B", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "F", "G", 36); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package leaderboardhandlers

import (
	"context"

	leaderboardservice "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/application"
	leaderboarddomain "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/domain"
)

type FakeService struct {
	GetLeaderboardFunc func(ctx context.Context, query string) (*leaderboardservice.Board, error)
	RenderChartFunc    func(ctx context.Context, limit int) ([]byte, error)
	ExportFunc         func(ctx context.Context, query string) ([]byte, error)
}

func (f *FakeService) GetLeaderboard(ctx context.Context, query string) (*leaderboardservice.Board, error) {
	if f.GetLeaderboardFunc != nil {
		return f.GetLeaderboardFunc(ctx, query)
	}
	return &leaderboardservice.Board{Standings: []leaderboarddomain.Standing{}}, nil
}

func (f *FakeService) RenderChart(ctx context.Context, limit int) ([]byte, error) {
	if f.RenderChartFunc != nil {
		return f.RenderChartFunc(ctx, limit)
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (f *FakeService) Export(ctx context.Context, query string) ([]byte, error) {
	if f.ExportFunc != nil {
		return f.ExportFunc(ctx, query)
	}
	return []byte("PK"), nil
}

func (f *FakeService) Classify(total int) leaderboarddomain.Tier {
	return leaderboarddomain.MustDefaultTierTable().Classify(total)
}

var _ leaderboardservice.Service = (*FakeService)(nil)

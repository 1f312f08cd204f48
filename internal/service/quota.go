package service

import (
	"context"
	"fmt"
	"time"

	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/pkg/metrics"
)

// UsageRepo tracks per-client sponsorship consumption for the current UTC day.
type UsageRepo interface {
	GetDailyUsage(ctx context.Context, clientID string) (actions int, gasUsed uint64, err error)
	AddDailyUsage(ctx context.Context, clientID string, actions int, gasUsed uint64) error
}

// QuotaGuard 限制每个客户端每日可赞助的链上操作数
type QuotaGuard struct {
	repo UsageRepo
}

func NewQuotaGuard(repo UsageRepo) *QuotaGuard {
	if repo == nil {
		repo = NewUsageStore()
	}
	return &QuotaGuard{repo: repo}
}

// Check 在提交交易前调用; 返回 error 则必须拒绝
func (g *QuotaGuard) Check(ctx context.Context, client *model.Client) error {
	limit := client.Quota.MaxDailyActions
	if limit <= 0 {
		return nil
	}
	actions, _, err := g.repo.GetDailyUsage(ctx, client.ID)
	if err != nil {
		return apperrors.New(apperrors.ErrInternal, "quota check failed", err)
	}
	if actions+1 > limit {
		metrics.QuotaRejects.WithLabelValues("daily_actions").Inc()
		return apperrors.New(apperrors.ErrQuotaExceeded,
			fmt.Sprintf("daily sponsorship quota exhausted (used %d of %d)", actions, limit), nil)
	}
	return nil
}

// Record 交易被打包后调用, gasUsed 来自回执
func (g *QuotaGuard) Record(ctx context.Context, client *model.Client, gasUsed uint64) error {
	return g.repo.AddDailyUsage(ctx, client.ID, 1, gasUsed)
}

func (g *QuotaGuard) Usage(ctx context.Context, client *model.Client) (*model.UsageReport, error) {
	actions, gasUsed, err := g.repo.GetDailyUsage(ctx, client.ID)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "load usage", err)
	}
	return &model.UsageReport{
		ClientID:        client.ID,
		Day:             UsageDay(time.Now()),
		Actions:         actions,
		GasUsed:         gasUsed,
		MaxDailyActions: client.Quota.MaxDailyActions,
	}, nil
}

// UsageDay is the UTC date bucket usage counters roll over on.
func UsageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

package sweeper

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/pagecorner/bookstore/internal/models"
)

// Sweeper purges expired announcements and sale rows on a fixed interval.
// Sweeping a sale never touches book prices: sales are evaluated at read
// time, so an expired row simply stops matching.
type Sweeper struct {
	DB       *gorm.DB
	Interval time.Duration
	Logger   *slog.Logger
}

func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(time.Now().UTC())
		}
	}
}

func (s *Sweeper) SweepOnce(now time.Time) {
	res := s.DB.Where("expires_at <= ?", now).Delete(&models.Announcement{})
	if res.Error != nil {
		s.Logger.Error("announcement_sweep_failed", "error", res.Error)
	} else if res.RowsAffected > 0 {
		s.Logger.Info("announcements_swept", "removed", res.RowsAffected)
	}

	res = s.DB.Where("end_date < ?", now).Delete(&models.Sale{})
	if res.Error != nil {
		s.Logger.Error("sale_sweep_failed", "error", res.Error)
	} else if res.RowsAffected > 0 {
		s.Logger.Info("sales_swept", "removed", res.RowsAffected)
	}
}

package models

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/nossocofre/cofre_backend/config"
	"github.com/nossocofre/cofre_backend/utils"
	"gorm.io/gorm"
)

// Report caches a generated monthly analysis artifact per (owner, month).
// The newest row for a key is the current one; older rows are history until
// the retention sweep removes them.
type Report struct {
	ID           int       `gorm:"primary_key" json:"id"`
	OwnerId      string    `gorm:"size:36;index:idx_report_owner;not null" json:"owner_id"`
	OwnerType    OwnerType `gorm:"type:enum('user','vault');size:8;index:idx_report_owner;not null" json:"owner_type"`
	MonthYear    string    `gorm:"size:7;index:idx_report_owner;not null" json:"month_year"`
	AnalysisHtml string    `gorm:"type:longtext" json:"analysis_html"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type ReportStatus struct {
	Exists     bool `json:"exists"`
	IsOutdated bool `json:"is_outdated"`
}

// IsReportStale: a report is stale when a newer in-scope transaction exists
// than what it was generated from. Staleness is monotonic: once a newer
// transaction exists it never un-exists, so a stale report stays stale until
// regenerated.
func IsReportStale(reportCreatedAt time.Time, newestTransaction *time.Time) bool {
	return newestTransaction != nil && newestTransaction.After(reportCreatedAt)
}

// newestTransactionStamp returns the latest created/modified timestamp among
// this owner's transactions dated inside the month, nil when the month has
// none. Updated_at moves on creation and on every correction edit, so a
// single MAX covers both.
func newestTransactionStamp(ctx context.Context, owner OwnerRef, monthYear string) (*time.Time, error) {
	start, end, err := utils.MonthBounds(monthYear)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var stamp *time.Time
	err = owner.Scope(db.WithContext(ctx)).Model(&Transaction{}).
		Where("date >= ? AND date < ?", start, end).
		Select("MAX(updated_at)").
		Scan(&stamp).Error
	if err != nil {
		return nil, err
	}
	return stamp, nil
}

func latestReport(ctx context.Context, owner OwnerRef, monthYear string) (*Report, error) {
	db := config.GetDB()
	var report Report
	err := owner.Scope(db.WithContext(ctx)).
		Where("month_year = ?", monthYear).
		Order("created_at DESC").
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// GetReportStatus drives the UI label: never generated ("Gerar"), cached and
// current ("Ver"), or cached but stale ("Atualizar"). A stale report must
// not be served silently as current.
func GetReportStatus(ctx context.Context, monthYear string) (*ReportStatus, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}

	report, err := latestReport(ctx, owner, monthYear)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return &ReportStatus{Exists: false}, nil
	}

	stamp, err := newestTransactionStamp(ctx, owner, monthYear)
	if err != nil {
		return nil, err
	}
	return &ReportStatus{Exists: true, IsOutdated: IsReportStale(report.CreatedAt, stamp)}, nil
}

// GetReport serves the cached artifact together with its freshness so the
// caller can present a stale one explicitly as out-of-date.
func GetReport(ctx context.Context, monthYear string) (*Report, *ReportStatus, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, nil, err
	}
	report, err := latestReport(ctx, owner, monthYear)
	if err != nil {
		return nil, nil, err
	}
	if report == nil {
		return nil, &ReportStatus{Exists: false}, nil
	}
	stamp, err := newestTransactionStamp(ctx, owner, monthYear)
	if err != nil {
		return nil, nil, err
	}
	return report, &ReportStatus{Exists: true, IsOutdated: IsReportStale(report.CreatedAt, stamp)}, nil
}

// GenerateReport produces a fresh analysis row. A best-effort redis lock
// keeps two concurrent requests from both paying for generation; correctness
// does not depend on it (a duplicate row just becomes stale history).
func GenerateReport(ctx context.Context, monthYear string) (*Report, error) {
	owner, err := ResolveScope(ctx)
	if err != nil {
		return nil, err
	}
	if _, _, err := utils.MonthBounds(monthYear); err != nil {
		return nil, err
	}

	if locker := config.GetRedisLock(); locker != nil {
		lockKey := "reportgen:" + string(owner.Type) + ":" + owner.Id + ":" + monthYear
		lock, err := locker.Obtain(ctx, lockKey, 2*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			return nil, errors.New("a report for this month is already being generated")
		}
		if err == nil {
			defer lock.Release(context.Background())
		}
	}

	transactions, err := GetTransactions(ctx, monthYear)
	if err != nil {
		return nil, err
	}

	analysisHtml, err := generateAnalysis(ctx, owner, monthYear, transactions)
	if err != nil {
		return nil, err
	}

	report := Report{
		OwnerId:      owner.Id,
		OwnerType:    owner.Type,
		MonthYear:    monthYear,
		AnalysisHtml: analysisHtml,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

const DefaultReportRetention = 90 * 24 * time.Hour

// CleanupReports deletes report rows older than the retention window.
// Maintenance sweep, not correctness-critical; see cmd/report-cleanup.
func CleanupReports(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultReportRetention
	}
	cutoff := time.Now().UTC().Add(-retention)

	db := config.GetDB()
	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Report{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

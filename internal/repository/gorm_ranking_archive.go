package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"commerce-core/internal/model"
	apperrors "commerce-core/pkg/errors"
)

const backupBatchSize = 500

// rankingBackupPO is one product's raw counter in a closed window
type rankingBackupPO struct {
	ID         int64     `gorm:"primaryKey;column:id;autoIncrement"`
	WindowKind string    `gorm:"column:window_kind;type:varchar(8);not null;uniqueIndex:idx_backup_window_product"`
	WindowID   string    `gorm:"column:window_id;type:varchar(16);not null;uniqueIndex:idx_backup_window_product"`
	ProductID  int64     `gorm:"column:product_id;not null;uniqueIndex:idx_backup_window_product"`
	Quantity   int64     `gorm:"column:quantity;not null"`
	BackedUpAt time.Time `gorm:"column:backed_up_at"`
}

func (rankingBackupPO) TableName() string {
	return "ranking_backups"
}

// rankingSnapshotHeadPO describes the current snapshot of a window kind
type rankingSnapshotHeadPO struct {
	WindowKind     string    `gorm:"primaryKey;column:window_kind;type:varchar(8)"`
	WindowID       string    `gorm:"column:window_id;type:varchar(16);not null"`
	WindowStart    time.Time `gorm:"column:window_start"`
	EntryCount     int       `gorm:"column:entry_count"`
	MaterializedAt time.Time `gorm:"column:materialized_at"`
}

func (rankingSnapshotHeadPO) TableName() string {
	return "ranking_snapshot_heads"
}

// rankingSnapshotPO is one ranked row of the current snapshot of a window kind
type rankingSnapshotPO struct {
	ID                 int64  `gorm:"primaryKey;column:id;autoIncrement"`
	WindowKind         string `gorm:"column:window_kind;type:varchar(8);not null;uniqueIndex:idx_snapshot_kind_rank"`
	RankNo             int    `gorm:"column:rank_no;not null;uniqueIndex:idx_snapshot_kind_rank"`
	WindowID           string `gorm:"column:window_id;type:varchar(16);not null"`
	ProductID          int64  `gorm:"column:product_id;not null"`
	Name               string `gorm:"column:name;type:varchar(255)"`
	Price              int64  `gorm:"column:price"`
	TotalSalesQuantity int64  `gorm:"column:total_sales_quantity"`
}

func (rankingSnapshotPO) TableName() string {
	return "ranking_snapshots"
}

// gormRankingArchive implements RankingArchive on a relational store
type gormRankingArchive struct {
	db *gorm.DB
}

// MigrateRankingArchive creates or updates the archive tables
func MigrateRankingArchive(db *gorm.DB) error {
	return db.AutoMigrate(&rankingBackupPO{}, &rankingSnapshotHeadPO{}, &rankingSnapshotPO{})
}

// NewRankingArchive creates a GORM-based ranking archive
func NewRankingArchive(db *gorm.DB) RankingArchive {
	return &gormRankingArchive{db: db}
}

// SaveBackup replaces the backup of w in one transaction
func (r *gormRankingArchive) SaveBackup(ctx context.Context, w model.Window, scores []model.RankingScore) error {
	now := time.Now()
	rows := make([]*rankingBackupPO, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, &rankingBackupPO{
			WindowKind: string(w.Kind),
			WindowID:   w.ID(),
			ProductID:  s.ProductID,
			Quantity:   s.Quantity,
			BackedUpAt: now,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("window_kind = ? AND window_id = ?", string(w.Kind), w.ID()).
			Delete(&rankingBackupPO{}).Error; err != nil {
			return fmt.Errorf("clear backup %s: %w", w, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, backupBatchSize).Error; err != nil {
			return fmt.Errorf("write backup %s: %w", w, err)
		}
		return nil
	})
}

// LoadBackup returns the backup of w ordered by product ID
func (r *gormRankingArchive) LoadBackup(ctx context.Context, w model.Window) ([]model.RankingScore, error) {
	var rows []rankingBackupPO
	if err := r.db.WithContext(ctx).
		Where("window_kind = ? AND window_id = ?", string(w.Kind), w.ID()).
		Order("product_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	scores := make([]model.RankingScore, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, model.RankingScore{ProductID: row.ProductID, Quantity: row.Quantity})
	}
	return scores, nil
}

// ReplaceSnapshot swaps the snapshot of the kind inside one transaction
func (r *gormRankingArchive) ReplaceSnapshot(ctx context.Context, snapshot *model.RankingSnapshot) error {
	head := &rankingSnapshotHeadPO{
		WindowKind:     string(snapshot.Kind),
		WindowID:       snapshot.WindowID,
		WindowStart:    snapshot.WindowStart,
		EntryCount:     len(snapshot.Entries),
		MaterializedAt: snapshot.MaterializedAt,
	}
	rows := make([]*rankingSnapshotPO, 0, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		rows = append(rows, &rankingSnapshotPO{
			WindowKind:         string(snapshot.Kind),
			RankNo:             e.Rank,
			WindowID:           snapshot.WindowID,
			ProductID:          e.ProductID,
			Name:               e.Name,
			Price:              e.Price,
			TotalSalesQuantity: e.TotalSalesQuantity,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "window_kind"}},
			UpdateAll: true,
		}).Create(head).Error; err != nil {
			return fmt.Errorf("write snapshot head %s: %w", snapshot.Kind, err)
		}
		if err := tx.Where("window_kind = ?", string(snapshot.Kind)).Delete(&rankingSnapshotPO{}).Error; err != nil {
			return fmt.Errorf("clear snapshot %s: %w", snapshot.Kind, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(rows).Error; err != nil {
			return fmt.Errorf("write snapshot %s: %w", snapshot.Kind, err)
		}
		return nil
	})
}

// GetSnapshot reads head and rows of the kind in one transaction
func (r *gormRankingArchive) GetSnapshot(ctx context.Context, kind model.WindowKind) (*model.RankingSnapshot, error) {
	var snapshot *model.RankingSnapshot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var head rankingSnapshotHeadPO
		if err := tx.Where("window_kind = ?", string(kind)).First(&head).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrSnapshotNotFound
			}
			return err
		}

		var rows []rankingSnapshotPO
		if err := tx.Where("window_kind = ?", string(kind)).Order("rank_no").Find(&rows).Error; err != nil {
			return err
		}

		snapshot = &model.RankingSnapshot{
			Kind:           kind,
			WindowID:       head.WindowID,
			WindowStart:    head.WindowStart,
			MaterializedAt: head.MaterializedAt,
			Entries:        make([]model.ProductRankingInfo, 0, len(rows)),
		}
		for _, row := range rows {
			snapshot.Entries = append(snapshot.Entries, model.ProductRankingInfo{
				Rank:               row.RankNo,
				ProductID:          row.ProductID,
				Name:               row.Name,
				Price:              row.Price,
				TotalSalesQuantity: row.TotalSalesQuantity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

package stats

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"doora/internal/errs"
	"doora/internal/infrastructure/persistence/sqlite/model"
	"doora/internal/ports"
)

// ProfileStats keeps per-user helper counters in the user_profiles table.
type ProfileStats struct {
	db *gorm.DB
}

func NewProfileStats(db *gorm.DB) *ProfileStats {
	return &ProfileStats{db: db}
}

func (s *ProfileStats) IncrementCounter(ctx context.Context, userID string, counter string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if userID == "" {
		return errors.New("user id is required")
	}

	row, column, err := seedRow(userID, counter)
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	if tx := ports.TxFromContext(ctx); tx != nil {
		gormTx, ok := tx.(*gorm.DB)
		if !ok || gormTx == nil {
			return fmt.Errorf("invalid tx in context: %T", tx)
		}
		db = gormTx.WithContext(ctx)
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			column: gorm.Expr(column+" + ?", 1),
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrapf(err, "increment %s for %s", counter, userID)
	}
	return nil
}

// seedRow builds the insert row for a first-time user: the touched counter
// starts at 1 so the upsert path and the insert path agree.
func seedRow(userID string, counter string) (model.UserProfile, string, error) {
	row := model.UserProfile{UserID: userID}
	switch counter {
	case ports.CounterPackagesCollected:
		row.PackagesCollected = 1
		return row, "packages_collected", nil
	case ports.CounterPackagesDelegated:
		row.PackagesDelegated = 1
		return row, "packages_delegated", nil
	case ports.CounterNeighborsHelped:
		row.NeighborsHelped = 1
		return row, "neighbors_helped", nil
	default:
		return row, "", fmt.Errorf("unknown profile counter %q", counter)
	}
}

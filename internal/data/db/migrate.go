package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/mockgrader/internal/domain"
)

// AutoMigrateAll creates the grading tables. Production schemas are owned by the
// authoring app; this is for local stacks and tests (DB_AUTO_MIGRATE=true).
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

func (s *PostgresService) AutoMigrateAll() error {
	if err := AutoMigrateAll(s.db); err != nil {
		return err
	}
	s.log.Info("automigrate complete")
	return nil
}

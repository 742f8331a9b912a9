package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/catalog-reconciler/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_batches",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.BatchModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_batches_status_created ON batches (status, created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.BatchModel{})
			},
		},
		{
			ID: "000002_create_batch_errors",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.BatchErrorModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_batch_errors_batch_id ON batch_errors (batch_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.BatchErrorModel{})
			},
		},
		{
			ID: "000003_create_chunk_jobs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.ChunkJobModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ChunkJobModel{})
			},
		},
	})

	return m.Migrate()
}

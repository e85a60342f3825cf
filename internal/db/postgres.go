package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "lms", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

// AutoMigrateAll migrates every table this subsystem owns plus the read-only
// authoring tables it consumes, then wires the ownership cascades by hand:
// a snapshot owns its items, refs and relations transitively.
func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Course{},
		&types.CourseItem{},
		&types.Snapshot{},
		&types.LearningObjectRef{},
		&types.Item{},
		&types.ItemRelation{},
	)
	if err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}

	s.log.Info("Configuring foreign key relationships...")
	cascades := []struct {
		name string
		ddl  string
	}{
		{
			name: "fk_course_item_course_id",
			ddl: `ALTER TABLE "course_item"
			      ADD CONSTRAINT "fk_course_item_course_id"
			      FOREIGN KEY ("course_id") REFERENCES "course"("id")
			      ON DELETE CASCADE`,
		},
		{
			name: "fk_snapshot_item_snapshot_id",
			ddl: `ALTER TABLE "snapshot_item"
			      ADD CONSTRAINT "fk_snapshot_item_snapshot_id"
			      FOREIGN KEY ("snapshot_id") REFERENCES "snapshot"("id")
			      ON DELETE CASCADE`,
		},
		{
			name: "fk_learning_object_ref_snapshot_id",
			ddl: `ALTER TABLE "learning_object_ref"
			      ADD CONSTRAINT "fk_learning_object_ref_snapshot_id"
			      FOREIGN KEY ("snapshot_id") REFERENCES "snapshot"("id")
			      ON DELETE CASCADE`,
		},
		{
			name: "fk_snapshot_item_relation_snapshot_id",
			ddl: `ALTER TABLE "snapshot_item_relation"
			      ADD CONSTRAINT "fk_snapshot_item_relation_snapshot_id"
			      FOREIGN KEY ("snapshot_id") REFERENCES "snapshot"("id")
			      ON DELETE CASCADE`,
		},
	}
	for _, c := range cascades {
		exists := s.db.Raw(
			`SELECT COUNT(1) FROM information_schema.table_constraints WHERE constraint_name = ?`,
			c.name,
		)
		var count int64
		if err := exists.Scan(&count).Error; err != nil {
			return fmt.Errorf("check constraint %s: %w", c.name, err)
		}
		if count > 0 {
			continue
		}
		if err := s.db.Exec(c.ddl).Error; err != nil {
			return fmt.Errorf("add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/lifeos/internal/logger"
	"google.golang.org/api/iterator"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Pattern to match migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Migrator applies the embedded schema migrations to one dataset.
type Migrator struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
	source    fs.FS
}

// NewMigrator creates a Migrator reading the migrations bundled with the
// binary.
func NewMigrator(client *bigquery.Client, projectID, datasetID, appliedBy string) (*Migrator, error) {
	source, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("NewMigrator: opening embedded migrations: %w", err)
	}
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	if appliedBy == "" {
		appliedBy = "lifeos-migrate"
	}
	return &Migrator{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		appliedBy: appliedBy,
		source:    source,
	}, nil
}

// Migrate applies every pending migration in version order and returns how
// many ran. It stops at the first failure.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx).With().
		Str("project_id", m.projectID).
		Str("dataset_id", m.datasetID).
		Logger()

	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("Migrate: ensure schema_migrations table: %w", err)
	}

	migrations, err := ReadMigrations(ctx, m.source, m.projectID, m.datasetID)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for _, am := range applied {
		appliedVersions[am.Version] = true
	}

	count := 0
	for _, migration := range migrations {
		if appliedVersions[migration.Version] {
			log.Debug().Str("migration", migration.Filename).Msg("Already applied")
			continue
		}

		log.Info().Str("migration", migration.Filename).Msg("Applying migration")
		if err := m.exec(ctx, migration.SQL, nil); err != nil {
			return count, fmt.Errorf("Migrate: executing %s: %w", migration.Filename, err)
		}
		if err := m.record(ctx, migration); err != nil {
			return count, fmt.Errorf("Migrate: recording %s: %w", migration.Filename, err)
		}
		count++
	}

	if count == 0 {
		log.Info().Msg("No new migrations to apply")
	} else {
		log.Info().Int("applied", count).Msg("Migrations applied")
	}
	return count, nil
}

// ReadMigrations reads all migration files at the root of fsys, substitutes
// the {{PROJECT_ID}} and {{DATASET_ID}} placeholders and sorts them by
// version. Files not matching NNNN_name.sql are skipped.
func ReadMigrations(ctx context.Context, fsys fs.FS, projectID, datasetID string) ([]Migration, error) {
	log := logger.FromContext(ctx)

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			log.Warn().Str("file", file.Name()).Msg("Skipping file with invalid format")
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			log.Warn().Str("file", file.Name()).Msg("Skipping file with invalid version")
			continue
		}

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		// Checksum covers the file as written, before placeholder substitution.
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *Migrator) ensureSchemaMigrationsTable(ctx context.Context) error {
	return m.exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+qualifiedTable(m.projectID, m.datasetID, "schema_migrations")+` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, nil)
}

func (m *Migrator) appliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	q := m.client.Query(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + qualifiedTable(m.projectID, m.datasetID, "schema_migrations") + `
		ORDER BY version ASC
	`)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func (m *Migrator) record(ctx context.Context, migration Migration) error {
	return m.exec(ctx, `
		INSERT INTO `+qualifiedTable(m.projectID, m.datasetID, "schema_migrations")+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: m.appliedBy},
	})
}

func (m *Migrator) exec(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := m.client.Query(sql)
	q.Parameters = params
	_, err := runDML(ctx, q)
	return err
}

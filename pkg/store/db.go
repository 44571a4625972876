package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
)

// SQLite driver names.
const (
	DriverPureGo = "sqlite"
	DriverCgo    = "sqlite3"
)

// ErrUnknownDriver is returned for a driver other than DriverPureGo or
// DriverCgo.
var ErrUnknownDriver = errors.New("store: unknown sqlite driver")

// Config holds database configuration.
type Config struct {
	// Path is the SQLite database file. ":memory:" is allowed.
	Path string

	// Driver selects the SQLite driver. Empty means DriverPureGo.
	Driver string

	// Logger receives GORM warnings. Nil silences GORM.
	Logger *slog.Logger
}

// DB wraps the GORM database instance.
type DB struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database and migrates its schema.
func Open(cfg Config) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPureGo
	}
	if driver != DriverPureGo && driver != DriverCgo {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	var gormLog logger.Interface
	if cfg.Logger != nil {
		gormLog = logger.New(
			slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
	} else {
		gormLog = logger.Default.LogMode(logger.Silent)
	}

	dialector := sqlite.Dialector{
		DriverName: driver,
		DSN:        cfg.Path,
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := configureSQLite(sqlDB, cfg.Path == ":memory:"); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.AutoMigrate(&Counter{}, &DatagramRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database initialized", "path", cfg.Path, "driver", driver)
	}
	return &DB{db: db}, nil
}

func configureSQLite(sqlDB *sql.DB, inMemory bool) error {
	pragmas := []string{
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=memory",
	}
	if !inMemory {
		pragmas = append([]string{"PRAGMA journal_mode=WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// LoadCounter implements idalloc.CounterStore.
func (d *DB) LoadCounter() (uint64, bool, error) {
	var c Counter
	err := d.db.Where("name = ?", counterName).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return c.Value, true, nil
}

// SaveCounter implements idalloc.CounterStore.
func (d *DB) SaveCounter(value uint64) error {
	return d.db.Save(&Counter{Name: counterName, Value: value, UpdatedAt: time.Now()}).Error
}

// InsertRecord implements delivery.RecordStore. An existing record with the
// same id is replaced.
func (d *DB) InsertRecord(rec delivery.Record) error {
	row := fromRecord(rec)
	return d.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// DeleteRecord implements delivery.RecordStore. Deleting a missing record
// is not an error.
func (d *DB) DeleteRecord(id uint64) error {
	return d.db.Delete(&DatagramRecord{}, id).Error
}

// ListRecords implements delivery.RecordStore, oldest first.
func (d *DB) ListRecords() ([]delivery.Record, error) {
	var rows []DatagramRecord
	if err := d.db.Order("received_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]delivery.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database connection is healthy.
func (d *DB) Health() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

var (
	_ idalloc.CounterStore = (*DB)(nil)
	_ delivery.RecordStore = (*DB)(nil)
)

// Package sqlstore caches the flat RXS user database (internal/server/userdb)
// in a local sqlite file as a read-through lookup cache. It is never the
// source of truth, and no other package in this repository calls it: the
// server re-parses the text file on every authorization. The cache is
// rebuilt whenever the backing file's mtime advances.
package sqlstore

import (
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	sqlite3migrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pfagner/rxs/internal/server/userdb"
)

// CachedUser is the gorm model backing the cache table.
type CachedUser struct {
	Name     string `gorm:"primaryKey"`
	Password string
	Group    string
	HomeDir  string
}

func (CachedUser) TableName() string { return "cached_users" }

// Store is a read-through sqlite cache in front of a flat user-db file.
type Store struct {
	sourcePath string
	db         *gorm.DB

	mu          sync.Mutex
	sourceMtime time.Time
}

// Open opens (creating if needed) the sqlite cache at cachePath for the
// flat user database at sourcePath, running migrations to ensure the
// schema exists.
func Open(cachePath, sourcePath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cachePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %q: %w", cachePath, err)
	}
	if err := db.AutoMigrate(&CachedUser{}); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return &Store{sourcePath: sourcePath, db: db}, nil
}

// refreshLocked rebuilds the cache from the flat file if its mtime has
// advanced since the last refresh. Caller must hold s.mu.
func (s *Store) refreshLocked() error {
	info, err := os.Stat(s.sourcePath)
	if err != nil {
		return fmt.Errorf("sqlstore: stat %q: %w", s.sourcePath, err)
	}
	if !info.ModTime().After(s.sourceMtime) {
		return nil
	}

	records, err := userdb.Parse(s.sourcePath)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&CachedUser{}).Error; err != nil {
			return err
		}
		for _, r := range records {
			row := CachedUser{Name: r.Name, Password: r.Password, Group: r.Group, HomeDir: r.HomeDir}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		s.sourceMtime = info.ModTime()
		return nil
	})
}

// Lookup returns the cached record for name, refreshing the cache first
// if the source file has changed.
func (s *Store) Lookup(name string) (*userdb.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return nil, err
	}

	var row CachedUser
	if err := s.db.Where("name = ?", name).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &userdb.Record{Name: row.Name, Password: row.Password, Group: row.Group, HomeDir: row.HomeDir}, nil
}

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies versioned schema migrations from migrationsFS instead
// of relying on AutoMigrate. Open itself uses AutoMigrate for the
// single-table cache; no code outside this package's tests calls Migrate.
func (s *Store) Migrate(migrationsFS fs.FS) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlstore: underlying *sql.DB: %w", err)
	}

	driver, err := sqlite3migrate.WithInstance(sqlDB, &sqlite3migrate.Config{})
	if err != nil {
		return fmt.Errorf("sqlstore: migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("sqlstore: migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("sqlstore: new migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("sqlstore: apply migrations: %w", err)
	}
	return nil
}

package database

import (
	"io"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/storage/database/badgerdb"
	"github.com/trezcool/schooldesk/storage/database/inmem"
	"github.com/trezcool/schooldesk/storage/database/postgres"
)

// Store groups the repositories of one storage engine.
type Store struct {
	Engine   string
	Students student.Repository
	History  history.Repository
	Settings settings.Repository

	// SQL is set for the postgres engine only.
	SQL *sqlx.DB

	closer io.Closer
}

func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open opens the store selected by conf.Database.Engine, creating and migrating it as needed.
func Open(conf *core.Config, logger core.Logger) (*Store, error) {
	switch conf.Database.Engine {
	case core.EngineMemory:
		db, err := inmemdb.Open()
		if err != nil {
			return nil, errors.Wrap(err, "opening memory store")
		}
		return &Store{
			Engine:   core.EngineMemory,
			Students: inmemdb.NewStudentRepository(db),
			History:  inmemdb.NewHistoryRepository(db),
			Settings: inmemdb.NewSettingsRepository(db),
			closer:   db,
		}, nil

	case core.EngineBadger, "":
		path := conf.Database.Path
		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(conf.WorkDir, path)
		}
		db, err := badgerdb.Open(path, logger)
		if err != nil {
			return nil, errors.Wrap(err, "opening badger store")
		}
		return &Store{
			Engine:   core.EngineBadger,
			Students: badgerdb.NewStudentRepository(db),
			History:  badgerdb.NewHistoryRepository(db),
			Settings: badgerdb.NewSettingsRepository(db),
			closer:   db,
		}, nil

	case core.EnginePostgres:
		if err := pgdb.CreateIfNotExist(conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := pgdb.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		if err = pgdb.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Store{
			Engine:   core.EnginePostgres,
			Students: pgdb.NewStudentRepository(db),
			History:  pgdb.NewHistoryRepository(db),
			Settings: pgdb.NewSettingsRepository(db),
			SQL:      db,
			closer:   db,
		}, nil

	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

package sqlstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/lomoval/sxodim/internal/storage"
	log "github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var ErrConnectionFailed = errors.New("failed to connect")

const (
	pgErrUniqueViolation = "23505"
	sqliteMemoryPath     = ":memory:"
)

type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type SQLiteConfig struct {
	Path string
}

type dialect struct {
	driver   string
	identity string
}

var (
	postgresDialect = dialect{driver: "postgres", identity: "BIGSERIAL PRIMARY KEY"}
	sqliteDialect   = dialect{driver: "sqlite", identity: "INTEGER PRIMARY KEY AUTOINCREMENT"}
)

const eventColumns = `id, name, "date", "time", place, description, image_url`

type Storage struct {
	dialect  dialect
	dsn      string
	maxConns int
	db       *sqlx.DB
}

func NewPostgres(config Config) *Storage {
	return &Storage{
		dialect: postgresDialect,
		dsn: fmt.Sprintf(
			"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			config.Host, config.Port, config.Database, config.Username, config.Password),
	}
}

func NewSQLite(config SQLiteConfig) *Storage {
	s := &Storage{dialect: sqliteDialect}
	switch config.Path {
	case "", sqliteMemoryPath:
		// Every connection to :memory: opens its own database.
		s.dsn = sqliteMemoryPath
		s.maxConns = 1
	default:
		// Writers take the lock at BEGIN so busy_timeout applies to sessions
		// that read before they write.
		s.dsn = "file:" + config.Path +
			"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	}
	return s
}

func (s *Storage) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, s.dialect.driver, s.dsn)
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return ErrConnectionFailed
	}
	if s.maxConns > 0 {
		db.SetMaxOpenConns(s.maxConns)
	}
	if err := RunMigrations(ctx, db, s.dialect, DefaultMigrations()); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrConnectionFailed
	}
	return s.db.PingContext(ctx)
}

func (s *Storage) Session(ctx context.Context) (storage.Session, error) {
	if s.db == nil {
		return nil, ErrConnectionFailed
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Session{tx: tx}, nil
}

// Session wraps one transaction.
type Session struct {
	tx     *sqlx.Tx
	closed bool
}

func (s *Session) AddEvent(ctx context.Context, e *storage.Event) error {
	err := s.tx.GetContext(
		ctx,
		&e.ID,
		s.tx.Rebind(`INSERT INTO events(name, "date", "time", place, description, image_url) `+
			"VALUES(?, ?, ?, ?, ?, ?) RETURNING id"),
		e.Name, e.Date, e.Time, e.Place, e.Description, e.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to add event: %w", err)
	}
	return nil
}

func (s *Session) GetEvent(ctx context.Context, id int64) (storage.Event, error) {
	var e storage.Event
	err := s.tx.GetContext(ctx, &e, s.tx.Rebind("SELECT "+eventColumns+" FROM events WHERE id=?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Event{}, fmt.Errorf("failed to get event with id %d: %w", id, storage.ErrNotFoundEvent)
	}
	return e, err
}

func (s *Session) ListEvents(ctx context.Context) ([]storage.Event, error) {
	events := make([]storage.Event, 0)
	err := s.tx.SelectContext(ctx, &events, "SELECT "+eventColumns+" FROM events ORDER BY id")
	return events, err
}

func (s *Session) UpdateEvent(ctx context.Context, id int64, e storage.Event) error {
	res, err := s.tx.ExecContext(
		ctx,
		s.tx.Rebind(`UPDATE events SET name=?, "date"=?, "time"=?, place=?, description=?, image_url=? WHERE id=?`),
		e.Name, e.Date, e.Time, e.Place, e.Description, e.ImageURL, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update event with id %d: %w", id, err)
	}
	return checkAffected(res, fmt.Sprintf("failed to update event with id %d", id))
}

func (s *Session) RemoveEvent(ctx context.Context, id int64) error {
	res, err := s.tx.ExecContext(ctx, s.tx.Rebind("DELETE FROM events WHERE id=?"), id)
	if err != nil {
		return fmt.Errorf("failed to remove event with id %d: %w", id, err)
	}
	return checkAffected(res, fmt.Sprintf("failed to remove event with id %d", id))
}

func (s *Session) AddUser(ctx context.Context, u *storage.User) error {
	err := s.tx.GetContext(
		ctx,
		&u.ID,
		s.tx.Rebind("INSERT INTO users(login, password) VALUES(?, ?) RETURNING id"),
		u.Login, u.Password,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("duplicate login %q: %w", u.Login, storage.ErrUserExists)
	}
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	return nil
}

func (s *Session) GetUser(ctx context.Context, id int64) (storage.User, error) {
	var u storage.User
	err := s.tx.GetContext(ctx, &u, s.tx.Rebind("SELECT id, login, password FROM users WHERE id=?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.User{}, fmt.Errorf("failed to get user with id %d: %w", id, storage.ErrNotFoundUser)
	}
	return u, err
}

func (s *Session) FindUser(ctx context.Context, login string, password string) (storage.User, error) {
	var u storage.User
	err := s.tx.GetContext(
		ctx,
		&u,
		s.tx.Rebind("SELECT id, login, password FROM users WHERE login=? AND password=? LIMIT 1"),
		login, password,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.User{}, fmt.Errorf("failed to find user %q: %w", login, storage.ErrNotFoundUser)
	}
	return u, err
}

func (s *Session) AddCalendarEntry(ctx context.Context, c *storage.CalendarEntry) error {
	err := s.tx.GetContext(
		ctx,
		&c.ID,
		s.tx.Rebind("INSERT INTO calendar(user_id, event_id) VALUES(?, ?) RETURNING id"),
		c.UserID, c.EventID,
	)
	if err != nil {
		return fmt.Errorf("failed to add calendar entry: %w", err)
	}
	return nil
}

func (s *Session) GetCalendarEvents(ctx context.Context, userID int64) ([]storage.Event, error) {
	events := make([]storage.Event, 0)
	err := s.tx.SelectContext(
		ctx,
		&events,
		s.tx.Rebind(`SELECT e.id, e.name, e."date", e."time", e.place, e.description, e.image_url `+
			"FROM calendar c JOIN events e ON e.id = c.event_id WHERE c.user_id=? ORDER BY c.id"),
		userID,
	)
	return events, err
}

func (s *Session) Commit() error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	s.closed = true
	return s.tx.Commit()
}

func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func checkAffected(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", msg, storage.ErrNotFoundEvent)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgErrUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// Primary code only, when extended codes are off.
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}

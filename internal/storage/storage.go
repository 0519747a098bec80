package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFoundEvent = errors.New("event not found")
	ErrNotFoundUser  = errors.New("user not found")
	ErrUserExists    = errors.New("user with same login exists")
	ErrSessionClosed = errors.New("session is closed")
)

type Storage interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
	Session(ctx context.Context) (Session, error)
}

// Session is a unit of work bound to a single request. Changes made through a
// session become visible to other sessions only after Commit. Close must be
// called on every path; closing an uncommitted session discards its changes.
type Session interface {
	AddEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id int64) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	UpdateEvent(ctx context.Context, id int64, e Event) error
	RemoveEvent(ctx context.Context, id int64) error

	AddUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (User, error)
	FindUser(ctx context.Context, login string, password string) (User, error)

	AddCalendarEntry(ctx context.Context, c *CalendarEntry) error
	GetCalendarEvents(ctx context.Context, userID int64) ([]Event, error)

	Commit() error
	Close() error
}

// WithSession runs fn inside a fresh session of s. The session is committed
// when fn succeeds and released on every exit path, panics included.
func WithSession(ctx context.Context, s Storage, fn func(sess Session) error) (err error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close session: %w", closeErr)
		}
	}()

	if err = fn(sess); err != nil {
		return err
	}
	if err = sess.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

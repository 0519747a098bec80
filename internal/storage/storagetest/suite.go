// Package storagetest holds behaviour checks shared by every storage engine.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/lomoval/sxodim/internal/storage"
	"github.com/stretchr/testify/require"
)

// Factory returns a connected, empty storage. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.Storage

func Run(t *testing.T, newStorage Factory) {
	t.Helper()

	t.Run("add and list events", func(t *testing.T) {
		s := newStorage(t)
		e := newEvent("concert")
		inSession(t, s, func(sess storage.Session) error {
			return sess.AddEvent(context.Background(), &e)
		})
		require.NotZero(t, e.ID)

		var events []storage.Event
		inSession(t, s, func(sess storage.Session) (err error) {
			events, err = sess.ListEvents(context.Background())
			return err
		})
		require.Equal(t, []storage.Event{e}, events)
	})

	t.Run("list empty", func(t *testing.T) {
		s := newStorage(t)
		inSession(t, s, func(sess storage.Session) error {
			events, err := sess.ListEvents(context.Background())
			require.NotNil(t, events)
			require.Empty(t, events)
			return err
		})
	})

	t.Run("update event", func(t *testing.T) {
		s := newStorage(t)
		e := newEvent("lecture")
		inSession(t, s, func(sess storage.Session) error {
			return sess.AddEvent(context.Background(), &e)
		})

		upd := storage.Event{
			ID:          9999,
			Name:        "updated",
			Date:        "2030-02-02",
			Time:        "20:00",
			Place:       "hall",
			Description: "updated description",
			ImageURL:    "https://img.example/2.png",
		}
		inSession(t, s, func(sess storage.Session) error {
			return sess.UpdateEvent(context.Background(), e.ID, upd)
		})

		inSession(t, s, func(sess storage.Session) error {
			got, err := sess.GetEvent(context.Background(), e.ID)
			upd.ID = e.ID
			require.Equal(t, upd, got)
			return err
		})
	})

	t.Run("update missing event", func(t *testing.T) {
		s := newStorage(t)
		err := storage.WithSession(context.Background(), s, func(sess storage.Session) error {
			return sess.UpdateEvent(context.Background(), 9999, newEvent("x"))
		})
		require.ErrorIs(t, err, storage.ErrNotFoundEvent)
	})

	t.Run("remove event twice", func(t *testing.T) {
		s := newStorage(t)
		e := newEvent("party")
		inSession(t, s, func(sess storage.Session) error {
			return sess.AddEvent(context.Background(), &e)
		})
		inSession(t, s, func(sess storage.Session) error {
			return sess.RemoveEvent(context.Background(), e.ID)
		})
		err := storage.WithSession(context.Background(), s, func(sess storage.Session) error {
			return sess.RemoveEvent(context.Background(), e.ID)
		})
		require.ErrorIs(t, err, storage.ErrNotFoundEvent)

		err = storage.WithSession(context.Background(), s, func(sess storage.Session) error {
			_, err := sess.GetEvent(context.Background(), e.ID)
			return err
		})
		require.ErrorIs(t, err, storage.ErrNotFoundEvent)
	})

	t.Run("duplicate login", func(t *testing.T) {
		s := newStorage(t)
		u := storage.User{Login: "alice", Password: "secret"}
		inSession(t, s, func(sess storage.Session) error {
			return sess.AddUser(context.Background(), &u)
		})
		require.NotZero(t, u.ID)

		dup := storage.User{Login: "alice", Password: "other"}
		err := storage.WithSession(context.Background(), s, func(sess storage.Session) error {
			return sess.AddUser(context.Background(), &dup)
		})
		require.ErrorIs(t, err, storage.ErrUserExists)
	})

	t.Run("find user", func(t *testing.T) {
		s := newStorage(t)
		u := storage.User{Login: "bob", Password: "pass"}
		inSession(t, s, func(sess storage.Session) error {
			return sess.AddUser(context.Background(), &u)
		})

		inSession(t, s, func(sess storage.Session) error {
			got, err := sess.FindUser(context.Background(), "bob", "pass")
			require.Equal(t, u, got)
			return err
		})

		for _, tc := range []struct{ login, password string }{
			{"bob", "wrong"},
			{"nobody", "pass"},
		} {
			err := storage.WithSession(context.Background(), s, func(sess storage.Session) error {
				_, err := sess.FindUser(context.Background(), tc.login, tc.password)
				return err
			})
			require.ErrorIs(t, err, storage.ErrNotFoundUser)
		}

		err := storage.WithSession(context.Background(), s, func(sess storage.Session) error {
			_, err := sess.GetUser(context.Background(), u.ID+100)
			return err
		})
		require.ErrorIs(t, err, storage.ErrNotFoundUser)
	})

	t.Run("calendar events", func(t *testing.T) {
		s := newStorage(t)
		u := storage.User{Login: "carol", Password: "pass"}
		first, second := newEvent("first"), newEvent("second")
		inSession(t, s, func(sess storage.Session) error {
			ctx := context.Background()
			require.NoError(t, sess.AddUser(ctx, &u))
			require.NoError(t, sess.AddEvent(ctx, &first))
			require.NoError(t, sess.AddEvent(ctx, &second))
			require.NoError(t, sess.AddCalendarEntry(ctx, &storage.CalendarEntry{UserID: u.ID, EventID: second.ID}))
			require.NoError(t, sess.AddCalendarEntry(ctx, &storage.CalendarEntry{UserID: u.ID, EventID: first.ID}))
			return sess.AddCalendarEntry(ctx, &storage.CalendarEntry{UserID: u.ID, EventID: second.ID})
		})

		inSession(t, s, func(sess storage.Session) error {
			events, err := sess.GetCalendarEvents(context.Background(), u.ID)
			require.Equal(t, []storage.Event{second, first, second}, events)
			return err
		})

		inSession(t, s, func(sess storage.Session) error {
			events, err := sess.GetCalendarEvents(context.Background(), u.ID+100)
			require.NotNil(t, events)
			require.Empty(t, events)
			return err
		})

		// Entries referencing a removed event are skipped.
		inSession(t, s, func(sess storage.Session) error {
			return sess.RemoveEvent(context.Background(), second.ID)
		})
		inSession(t, s, func(sess storage.Session) error {
			events, err := sess.GetCalendarEvents(context.Background(), u.ID)
			require.Equal(t, []storage.Event{first}, events)
			return err
		})
	})

	t.Run("uncommitted changes are discarded", func(t *testing.T) {
		s := newStorage(t)
		failure := errors.New("handler failure")
		err := storage.WithSession(context.Background(), s, func(sess storage.Session) error {
			e := newEvent("ghost")
			require.NoError(t, sess.AddEvent(context.Background(), &e))
			return failure
		})
		require.ErrorIs(t, err, failure)

		inSession(t, s, func(sess storage.Session) error {
			events, err := sess.ListEvents(context.Background())
			require.Empty(t, events)
			return err
		})
	})

	t.Run("session released after panic", func(t *testing.T) {
		s := newStorage(t)
		require.Panics(t, func() {
			_ = storage.WithSession(context.Background(), s, func(sess storage.Session) error {
				panic("boom")
			})
		})
		// A leaked session would block or fail here.
		inSession(t, s, func(sess storage.Session) error {
			_, err := sess.ListEvents(context.Background())
			return err
		})
	})
}

func inSession(t *testing.T, s storage.Storage, fn func(sess storage.Session) error) {
	t.Helper()
	require.NoError(t, storage.WithSession(context.Background(), s, fn))
}

func newEvent(name string) storage.Event {
	return storage.Event{
		Name:        name,
		Date:        "2030-01-01",
		Time:        "19:00",
		Place:       "club",
		Description: name + " description",
		ImageURL:    "https://img.example/1.png",
	}
}

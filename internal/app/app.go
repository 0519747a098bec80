package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lomoval/sxodim/internal/rabbit"
	"github.com/lomoval/sxodim/internal/schema"
	"github.com/lomoval/sxodim/internal/storage"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUnauthorized = errors.New("invalid login or password")
	ErrNotFound     = errors.New("user or event not found")
)

// Notifier receives a message for every event added to a calendar.
type Notifier interface {
	PublishMessage(ctx context.Context, m rabbit.Message) error
}

type App struct {
	Storage  storage.Storage
	notifier Notifier
	now      func() time.Time
}

type Option func(a *App)

func WithNotifier(n Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}

func New(storage storage.Storage, opts ...Option) *App {
	a := &App{Storage: storage, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) Register(ctx context.Context, r schema.RegisterRequest) (storage.User, error) {
	u := storage.User{Login: r.Login, Password: r.Password}
	err := storage.WithSession(ctx, a.Storage, func(sess storage.Session) error {
		return sess.AddUser(ctx, &u)
	})
	if err != nil {
		return storage.User{}, err
	}
	return u, nil
}

func (a *App) Login(ctx context.Context, r schema.LoginRequest) (storage.User, error) {
	var u storage.User
	err := storage.WithSession(ctx, a.Storage, func(sess storage.Session) (err error) {
		u, err = sess.FindUser(ctx, r.Login, r.Password)
		return err
	})
	if errors.Is(err, storage.ErrNotFoundUser) {
		return storage.User{}, fmt.Errorf("login %q: %w", r.Login, ErrUnauthorized)
	}
	return u, err
}

func (a *App) ListEvents(ctx context.Context) ([]storage.Event, error) {
	var events []storage.Event
	err := storage.WithSession(ctx, a.Storage, func(sess storage.Session) (err error) {
		events, err = sess.ListEvents(ctx)
		return err
	})
	return events, err
}

func (a *App) CreateEvent(ctx context.Context, e storage.Event) (storage.Event, error) {
	e.ID = 0
	err := storage.WithSession(ctx, a.Storage, func(sess storage.Session) error {
		return sess.AddEvent(ctx, &e)
	})
	if err != nil {
		return storage.Event{}, err
	}
	return e, nil
}

func (a *App) UpdateEvent(ctx context.Context, id int64, e storage.Event) (storage.Event, error) {
	var updated storage.Event
	err := storage.WithSession(ctx, a.Storage, func(sess storage.Session) error {
		current, err := sess.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		applyEventFields(&current, e)
		if err := sess.UpdateEvent(ctx, id, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	return updated, err
}

func (a *App) RemoveEvent(ctx context.Context, id int64) error {
	return storage.WithSession(ctx, a.Storage, func(sess storage.Session) error {
		return sess.RemoveEvent(ctx, id)
	})
}

func (a *App) AddToCalendar(ctx context.Context, item schema.CalendarItem) error {
	var event storage.Event
	err := storage.WithSession(ctx, a.Storage, func(sess storage.Session) error {
		_, userErr := sess.GetUser(ctx, item.UserID)
		if userErr != nil && !errors.Is(userErr, storage.ErrNotFoundUser) {
			return userErr
		}
		var eventErr error
		event, eventErr = sess.GetEvent(ctx, item.EventID)
		if eventErr != nil && !errors.Is(eventErr, storage.ErrNotFoundEvent) {
			return eventErr
		}
		if userErr != nil || eventErr != nil {
			return fmt.Errorf("user %d, event %d: %w", item.UserID, item.EventID, ErrNotFound)
		}
		return sess.AddCalendarEntry(ctx, &storage.CalendarEntry{UserID: item.UserID, EventID: item.EventID})
	})
	if err != nil {
		return err
	}
	a.notify(ctx, item.UserID, event)
	return nil
}

func (a *App) GetCalendar(ctx context.Context, userID int64) ([]storage.Event, error) {
	var events []storage.Event
	err := storage.WithSession(ctx, a.Storage, func(sess storage.Session) (err error) {
		events, err = sess.GetCalendarEvents(ctx, userID)
		return err
	})
	return events, err
}

// GetSettings always returns the defaults, settings are not stored.
func (a *App) GetSettings(_ context.Context, _ int64) schema.UserSettings {
	return schema.DefaultSettings()
}

func (a *App) UpdateSettings(_ context.Context, _ int64, s schema.UserSettings) schema.UserSettings {
	return s
}

// applyEventFields copies every mutable field of src onto dst; the id is kept.
func applyEventFields(dst *storage.Event, src storage.Event) {
	dst.Name = src.Name
	dst.Date = src.Date
	dst.Time = src.Time
	dst.Place = src.Place
	dst.Description = src.Description
	dst.ImageURL = src.ImageURL
}

func (a *App) notify(ctx context.Context, userID int64, e storage.Event) {
	if a.notifier == nil {
		return
	}
	m := rabbit.Message{
		UserID:    userID,
		EventID:   e.ID,
		EventName: e.Name,
		Date:      e.Date,
		Time:      e.Time,
		AddedAt:   a.now().UTC(),
	}
	if err := a.notifier.PublishMessage(ctx, m); err != nil {
		log.Errorf("failed to publish calendar notification: %v", err)
	}
}

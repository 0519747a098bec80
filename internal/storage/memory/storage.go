package memorystorage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lomoval/sxodim/internal/storage"
)

type state struct {
	events   map[int64]storage.Event
	users    map[int64]storage.User
	logins   map[string]int64
	calendar []storage.CalendarEntry

	eventSeq    int64
	userSeq     int64
	calendarSeq int64
}

func newState() *state {
	return &state{
		events: make(map[int64]storage.Event),
		users:  make(map[int64]storage.User),
		logins: make(map[string]int64),
	}
}

func (st *state) clone() *state {
	c := &state{
		events:      make(map[int64]storage.Event, len(st.events)),
		users:       make(map[int64]storage.User, len(st.users)),
		logins:      make(map[string]int64, len(st.logins)),
		calendar:    make([]storage.CalendarEntry, len(st.calendar)),
		eventSeq:    st.eventSeq,
		userSeq:     st.userSeq,
		calendarSeq: st.calendarSeq,
	}
	for k, v := range st.events {
		c.events[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.logins {
		c.logins[k] = v
	}
	copy(c.calendar, st.calendar)
	return c
}

// Storage keeps records in process memory. Sessions are serialized: a session
// holds the storage lock from creation until Close.
type Storage struct {
	mu    sync.Mutex
	state *state
}

func New() *Storage {
	return &Storage{state: newState()}
}

func (s *Storage) Connect(_ context.Context) error {
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) Session(ctx context.Context) (storage.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &Session{storage: s, current: s.state}, nil
}

// Session reads the committed state until its first write, then works on a
// private copy which replaces the committed state on Commit.
type Session struct {
	storage *Storage
	current *state
	dirty   bool
	closed  bool
}

func (s *Session) writable() *state {
	if !s.dirty {
		s.current = s.current.clone()
		s.dirty = true
	}
	return s.current
}

func (s *Session) AddEvent(_ context.Context, e *storage.Event) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	st := s.writable()
	st.eventSeq++
	e.ID = st.eventSeq
	st.events[e.ID] = *e
	return nil
}

func (s *Session) GetEvent(_ context.Context, id int64) (storage.Event, error) {
	if s.closed {
		return storage.Event{}, storage.ErrSessionClosed
	}
	e, ok := s.current.events[id]
	if !ok {
		return storage.Event{}, fmt.Errorf("failed to get event with id %d: %w", id, storage.ErrNotFoundEvent)
	}
	return e, nil
}

func (s *Session) ListEvents(_ context.Context) ([]storage.Event, error) {
	if s.closed {
		return nil, storage.ErrSessionClosed
	}
	events := make([]storage.Event, 0, len(s.current.events))
	for _, e := range s.current.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (s *Session) UpdateEvent(_ context.Context, id int64, e storage.Event) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if _, ok := s.current.events[id]; !ok {
		return fmt.Errorf("failed to update event with id %d: %w", id, storage.ErrNotFoundEvent)
	}
	st := s.writable()
	e.ID = id
	st.events[id] = e
	return nil
}

func (s *Session) RemoveEvent(_ context.Context, id int64) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if _, ok := s.current.events[id]; !ok {
		return fmt.Errorf("failed to remove event with id %d: %w", id, storage.ErrNotFoundEvent)
	}
	delete(s.writable().events, id)
	return nil
}

func (s *Session) AddUser(_ context.Context, u *storage.User) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if _, ok := s.current.logins[u.Login]; ok {
		return fmt.Errorf("duplicate login %q: %w", u.Login, storage.ErrUserExists)
	}
	st := s.writable()
	st.userSeq++
	u.ID = st.userSeq
	st.users[u.ID] = *u
	st.logins[u.Login] = u.ID
	return nil
}

func (s *Session) GetUser(_ context.Context, id int64) (storage.User, error) {
	if s.closed {
		return storage.User{}, storage.ErrSessionClosed
	}
	u, ok := s.current.users[id]
	if !ok {
		return storage.User{}, fmt.Errorf("failed to get user with id %d: %w", id, storage.ErrNotFoundUser)
	}
	return u, nil
}

func (s *Session) FindUser(_ context.Context, login string, password string) (storage.User, error) {
	if s.closed {
		return storage.User{}, storage.ErrSessionClosed
	}
	id, ok := s.current.logins[login]
	if !ok {
		return storage.User{}, fmt.Errorf("failed to find user %q: %w", login, storage.ErrNotFoundUser)
	}
	u := s.current.users[id]
	if u.Password != password {
		return storage.User{}, fmt.Errorf("failed to find user %q: %w", login, storage.ErrNotFoundUser)
	}
	return u, nil
}

func (s *Session) AddCalendarEntry(_ context.Context, c *storage.CalendarEntry) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	st := s.writable()
	st.calendarSeq++
	c.ID = st.calendarSeq
	st.calendar = append(st.calendar, *c)
	return nil
}

func (s *Session) GetCalendarEvents(_ context.Context, userID int64) ([]storage.Event, error) {
	if s.closed {
		return nil, storage.ErrSessionClosed
	}
	events := make([]storage.Event, 0)
	for _, c := range s.current.calendar {
		if c.UserID != userID {
			continue
		}
		// Entries may outlive their event.
		if e, ok := s.current.events[c.EventID]; ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *Session) Commit() error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if s.dirty {
		s.storage.state = s.current
		s.current = s.storage.state
		s.dirty = false
	}
	return nil
}

func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.current = nil
	s.storage.mu.Unlock()
	return nil
}

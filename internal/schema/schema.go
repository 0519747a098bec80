// Package schema defines the JSON payloads accepted and returned by the API
// and decodes inbound payloads into them.
package schema

import "github.com/lomoval/sxodim/internal/storage"

const (
	DefaultTheme         = "light"
	DefaultNotifications = true
)

type Event struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Place       string `json:"place"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type LoginRequest = RegisterRequest

type CalendarItem struct {
	UserID  int64 `json:"user_id"`
	EventID int64 `json:"event_id"`
}

// UserSettings fields are nullable: an explicit null is echoed back as null.
type UserSettings struct {
	Theme         *string `json:"theme"`
	Notifications *bool   `json:"notifications"`
}

type Message struct {
	Message string `json:"message"`
}

func DefaultSettings() UserSettings {
	theme, notifications := DefaultTheme, DefaultNotifications
	return UserSettings{Theme: &theme, Notifications: &notifications}
}

func FromEvent(e storage.Event) Event {
	return Event{
		ID:          e.ID,
		Name:        e.Name,
		Date:        e.Date,
		Time:        e.Time,
		Place:       e.Place,
		Description: e.Description,
		ImageURL:    e.ImageURL,
	}
}

func FromEvents(events []storage.Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		out = append(out, FromEvent(e))
	}
	return out
}

func FromUser(u storage.User) User {
	return User{ID: u.ID, Login: u.Login}
}

// Record returns the storage form of e. The id is never carried over.
func (e Event) Record() storage.Event {
	return storage.Event{
		Name:        e.Name,
		Date:        e.Date,
		Time:        e.Time,
		Place:       e.Place,
		Description: e.Description,
		ImageURL:    e.ImageURL,
	}
}

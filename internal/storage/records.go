package storage

type Event struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Date        string `db:"date"`
	Time        string `db:"time"`
	Place       string `db:"place"`
	Description string `db:"description"`
	ImageURL    string `db:"image_url"`
}

type User struct {
	ID       int64  `db:"id"`
	Login    string `db:"login"`
	Password string `db:"password"`
}

type CalendarEntry struct {
	ID      int64 `db:"id"`
	UserID  int64 `db:"user_id"`
	EventID int64 `db:"event_id"`
}

package internalhttp

import (
	"net/http"

	"github.com/lomoval/sxodim/internal/schema"
)

const maxBodySize = 1 << 20

const (
	msgEventDeleted    = "Event deleted"
	msgAddedToCalendar = "Added to calendar"
	pathParamEventID   = "event_id"
	pathParamUserID    = "user_id"
)

func body(w http.ResponseWriter, r *http.Request) *http.Request {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return r
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	req, err := schema.DecodeRegisterRequest(body(w, r).Body)
	if err != nil {
		return err
	}
	u, err := s.app.Register(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, schema.FromUser(u))
	return nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	req, err := schema.DecodeLoginRequest(body(w, r).Body)
	if err != nil {
		return err
	}
	u, err := s.app.Login(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, schema.FromUser(u))
	return nil
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	events, err := s.app.ListEvents(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, schema.FromEvents(events))
	return nil
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	in, err := schema.DecodeEvent(body(w, r).Body)
	if err != nil {
		return err
	}
	e, err := s.app.CreateEvent(r.Context(), in.Record())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, schema.FromEvent(e))
	return nil
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	id, err := schema.ParseID(pathParamEventID, params[pathParamEventID])
	if err != nil {
		return err
	}
	in, err := schema.DecodeEvent(body(w, r).Body)
	if err != nil {
		return err
	}
	e, err := s.app.UpdateEvent(r.Context(), id, in.Record())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, schema.FromEvent(e))
	return nil
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	id, err := schema.ParseID(pathParamEventID, params[pathParamEventID])
	if err != nil {
		return err
	}
	if err := s.app.RemoveEvent(r.Context(), id); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, schema.Message{Message: msgEventDeleted})
	return nil
}

func (s *Server) addToCalendar(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	item, err := schema.DecodeCalendarItem(body(w, r).Body)
	if err != nil {
		return err
	}
	if err := s.app.AddToCalendar(r.Context(), item); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, schema.Message{Message: msgAddedToCalendar})
	return nil
}

func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	userID, err := schema.ParseID(pathParamUserID, params[pathParamUserID])
	if err != nil {
		return err
	}
	events, err := s.app.GetCalendar(r.Context(), userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, schema.FromEvents(events))
	return nil
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	userID, err := schema.ParseID(pathParamUserID, params[pathParamUserID])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.app.GetSettings(r.Context(), userID))
	return nil
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	userID, err := schema.ParseID(pathParamUserID, params[pathParamUserID])
	if err != nil {
		return err
	}
	settings, err := schema.DecodeUserSettings(body(w, r).Body)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.app.UpdateSettings(r.Context(), userID, settings))
	return nil
}

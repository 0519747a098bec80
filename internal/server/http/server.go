package internalhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/lomoval/sxodim/internal/app"
	"github.com/lomoval/sxodim/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	srv  *http.Server
	mux  *runtime.ServeMux
	app  *app.App
	addr string
}

// apiHandler serves one endpoint; a returned error is converted into the
// error response by the server.
type apiHandler func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) error

func NewServer(config Config, app *app.App) (*Server, error) {
	s := &Server{
		addr: net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		mux:  runtime.NewServeMux(runtime.WithRoutingErrorHandler(routingErrorHandler)),
		app:  app,
	}
	if err := s.routes(); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes() error {
	routes := []struct {
		method    string
		pattern   string
		operation string
		handler   apiHandler
	}{
		{http.MethodPost, "/api/register", "register", s.register},
		{http.MethodPost, "/api/login", "login", s.login},
		{http.MethodGet, "/api/events", "list_events", s.listEvents},
		{http.MethodPost, "/api/events", "create_event", s.createEvent},
		{http.MethodPut, "/api/events/{event_id}", "update_event", s.updateEvent},
		{http.MethodDelete, "/api/events/{event_id}", "delete_event", s.deleteEvent},
		{http.MethodPost, "/api/calendar", "add_to_calendar", s.addToCalendar},
		{http.MethodGet, "/api/calendar/{user_id}", "get_calendar", s.getCalendar},
		{http.MethodGet, "/api/users/{user_id}/settings", "get_settings", s.getSettings},
		{http.MethodPut, "/api/users/{user_id}/settings", "update_settings", s.updateSettings},
	}
	for _, rt := range routes {
		if err := s.mux.HandlePath(rt.method, rt.pattern, s.wrap(rt.pattern, rt.operation, rt.handler)); err != nil {
			return fmt.Errorf("%s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return s.mux.HandlePath(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		metrics.Handler().ServeHTTP(w, r)
	})
}

func (s *Server) wrap(pattern, operation string, h apiHandler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		metrics.Observe(pattern, func(w http.ResponseWriter, r *http.Request) {
			if err := h(w, r, pathParams); err != nil {
				writeError(w, r, operation, err)
			}
		})(w, r)
	}
}

func (s *Server) Handler() http.Handler {
	return loggingMiddleware(s.mux)
}

func (s *Server) Start(_ context.Context) error {
	log.Printf("starting http server on %s", s.addr)
	err := s.srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func getIP(req *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}

	if parsed := net.ParseIP(ip); parsed == nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}
	return ip, nil
}

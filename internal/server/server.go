package server

import (
	"net/http"
	"sync"

	"github.com/sw33tLie/kselect/internal/utils"
	"github.com/sw33tLie/kselect/pkg/config"
	"github.com/sw33tLie/kselect/pkg/form"
	"github.com/sw33tLie/kselect/pkg/storage"
)

// Server hosts record forms with the company selector mounted, standing
// in for the form platform: it raises the show and submit events and
// stores the resulting records.
type Server struct {
	DB       *storage.DB
	Runtime  *form.Runtime
	Cfg      config.App
	Username string
	Password string

	mu    sync.Mutex
	pages map[string]*form.Page  // last rendered page per record key
	locks map[string]*sync.Mutex // serialises events per record key
}

func New(db *storage.DB, rt *form.Runtime, cfg config.App, user, pass string) *Server {
	return &Server{
		DB:       db,
		Runtime:  rt,
		Cfg:      cfg,
		Username: user,
		Password: pass,
		pages:    make(map[string]*form.Page),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/records", s.basicAuth(s.handleListRecords))
	mux.HandleFunc("GET /api/changes", s.basicAuth(s.handleChanges))

	mux.HandleFunc("GET /records/new", s.basicAuth(s.handleShow))
	mux.HandleFunc("POST /records/new", s.basicAuth(s.handleSubmit))
	mux.HandleFunc("GET /records/{id}/edit", s.basicAuth(s.handleShow))
	mux.HandleFunc("POST /records/{id}/edit", s.basicAuth(s.handleSubmit))

	return mux
}

func (s *Server) Start(addr string) error {
	utils.Log.Infof("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// lockRecord holds the event lock of key until the returned func is called.
// Show and submit of one record never run at the same time, so the page
// tree is only ever touched by one request.
func (s *Server) lockRecord(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Server) page(key string) *form.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[key]
}

// setPage records the page rendered for key. A later show replaces an
// earlier one.
func (s *Server) setPage(key string, p *form.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[key] = p
}

func (s *Server) dropPage(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, key)
}

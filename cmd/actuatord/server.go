package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/w1xm/climber/actuator"
	"github.com/w1xm/climber/journal"
)

// Status is the document served on /api/status and pushed on /api/ws.
type Status struct {
	Machine string `json:"machine"`
	Radio   string `json:"radio"`
	// RadioConnected is only reported by links that reconnect, such as the
	// serial bridge.
	RadioConnected *bool          `json:"radio_connected,omitempty"`
	State          actuator.State `json:"state"`
	LastDispatch   *journal.Entry `json:"last_dispatch,omitempty"`
	Updated        time.Time      `json:"updated"`
}

type linkState interface {
	Connected() bool
}

type stopper interface {
	Stop() error
}

// journalReader is satisfied by *journal.Journal.
type journalReader interface {
	Recent(n int) ([]journal.Entry, error)
}

type Server struct {
	log     *log.Entry
	motors  stopper
	radio   linkState
	journal journalReader

	statusMu   sync.RWMutex
	statusCond *sync.Cond
	status     Status
	version    uint64
}

// NewServer returns a server without motors or radio; set them before
// serving.
func NewServer(j journalReader, initial Status, logger *log.Entry) *Server {
	s := &Server{log: logger, journal: j, status: initial}
	s.statusCond = sync.NewCond(s.statusMu.RLocker())
	return s
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.StatusHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/ws", s.StatusSocketHandler)
	r.HandleFunc("/api/journal", s.JournalHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) snapshot() (Status, uint64) {
	s.statusMu.RLock()
	status, version := s.status, s.version
	s.statusMu.RUnlock()
	if s.radio != nil {
		connected := s.radio.Connected()
		status.RadioConnected = &connected
	}
	return status, version
}

func writeJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	status, _ := s.snapshot()
	if err := writeJSON(w, status); err != nil {
		s.log.Warn(err)
	}
}

func (s *Server) JournalHandler(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	n := 50
	if v := r.URL.Query().Get("n"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n <= 0 {
			http.Error(w, "bad n", http.StatusBadRequest)
			return
		}
	}
	entries, err := s.journal.Recent(n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	if err := writeJSON(w, entries); err != nil {
		s.log.Warn(err)
	}
}

type Command struct {
	Command string `json:"command"`
}

func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(err)
		return
	}
	defer conn.Close()

	// Wake the writer below when the socket goes away.
	stop := context.AfterFunc(ctx, func() {
		s.statusMu.Lock()
		s.statusCond.Broadcast()
		s.statusMu.Unlock()
	})
	defer stop()

	// Read and process incoming messages
	go func() {
		defer cancel()
		for {
			var msg Command
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Command {
			case "stop":
				s.log.Info("stop requested over websocket")
				if err := s.motors.Stop(); err != nil {
					s.log.Errorf("stop: %v", err)
				}
			default:
				s.log.Warnf("unknown websocket command %q", msg.Command)
			}
		}
	}()

	status, seen := s.snapshot()
	for {
		if err := conn.WriteJSON(status); err != nil {
			s.log.Debugf("websocket write: %v", err)
			return
		}
		s.statusMu.RLock()
		for s.version == seen && ctx.Err() == nil {
			s.statusCond.Wait()
		}
		s.statusMu.RUnlock()
		if ctx.Err() != nil {
			return
		}
		status, seen = s.snapshot()
	}
}

func (s *Server) update(f func(*Status)) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	f(&s.status)
	s.status.Updated = time.Now()
	s.version++
	s.statusCond.Broadcast()
}

func (s *Server) stateCallback(state actuator.State) {
	s.update(func(st *Status) { st.State = state })
}

func (s *Server) dispatchCallback(e journal.Entry) {
	s.update(func(st *Status) { st.LastDispatch = &e })
}

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/wfunc/rhythmserver/lobby"
	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/monitor"
	"github.com/wfunc/rhythmserver/room"
	"github.com/wfunc/rhythmserver/session"
	"github.com/wfunc/rhythmserver/timer"
)

const (
	DefaultHeartbeatInterval = 15 * time.Second
	metricsSampleInterval    = 5 * time.Second
	lookupTimeout            = 5 * time.Second
)

// Options wires a GameServer. Accounts may be nil, then the identity a
// client claims is trusted as is.
type Options struct {
	Addr              string
	Rooms             *room.Manager
	Lobby             *lobby.Service
	Accounts          room.AccountLookup
	Monitor           *monitor.Monitor
	Timers            *timer.TimerManager
	Tracer            trace.Tracer
	HeartbeatInterval time.Duration
	MinClientVersion  int
	ChatRate          rate.Limit
	ChatBurst         int
}

type GameServer struct {
	opts           Options
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	router         *Router
	httpServer     *http.Server
	sampleTimer    int64
	mutex          sync.Mutex
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
	conns          sync.WaitGroup
}

func NewGameServer(opts Options) *GameServer {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("rhythmserver")
	}
	s := &GameServer{
		opts:           opts,
		roomManager:    opts.Rooms,
		sessionManager: session.NewManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.router = NewRouter(opts.Rooms, opts.Monitor, opts.Tracer)
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes: the room channel, the lobby API and
// metrics.
func (s *GameServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/multi/{roomID}", s.handleWebSocket)
	r.Route("/api", func(r chi.Router) {
		r.Get("/getrooms", s.handleGetRooms)
		r.Post("/createroom", s.handleCreateRoom)
	})
	if s.opts.Monitor != nil {
		r.Handle("/metrics", s.opts.Monitor.Handler())
	}
	return r
}

// Start serves HTTP until Shutdown. It returns nil after a clean shutdown.
func (s *GameServer) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *GameServer) Serve(ln net.Listener) error {
	s.startSampling()
	logger.Log.Infof("Game server listening on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes the open ones and waits for
// their room leaves to finish.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		s.stopSampling()
		err = s.httpServer.Shutdown(ctx)
		// hijacked websocket connections are not tracked by http.Server
		s.sessionManager.Each(func(sess *session.Session) {
			_ = sess.Close()
		})

		done := make(chan struct{})
		go func() {
			s.conns.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	})
	return err
}

// Sessions is the number of open room connections.
func (s *GameServer) Sessions() int {
	return s.sessionManager.Count()
}

func (s *GameServer) startSampling() {
	if s.opts.Timers == nil || s.opts.Monitor == nil {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.sampleTimer != 0 {
		return
	}
	s.sampleTimer = s.opts.Timers.AddTimer(metricsSampleInterval, metricsSampleInterval, func() {
		s.opts.Monitor.SetActiveRooms(s.roomManager.Count())
	})
}

func (s *GameServer) stopSampling() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.sampleTimer != 0 {
		s.opts.Timers.RemoveTimer(s.sampleTimer)
		s.sampleTimer = 0
	}
}

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"github.com/oklog/run"

	"github.com/batonworks/baton/internal/checkpoint"
	"github.com/batonworks/baton/internal/config"
	"github.com/batonworks/baton/internal/errors"
	"github.com/batonworks/baton/internal/logging"
	"github.com/batonworks/baton/internal/memory"
	"github.com/batonworks/baton/internal/orchestrator"
	"github.com/batonworks/baton/internal/pipeline"
	"github.com/batonworks/baton/internal/prompt"
	"github.com/batonworks/baton/internal/session"
	"github.com/batonworks/baton/internal/structure"
)

// idleCheckInterval is how often the idle watchdog samples activity.
const idleCheckInterval = 30 * time.Second

// Bundle is the warm state the daemon keeps resident between requests:
// catalog, store, structure cache, and the orchestrator wired over them.
// Building one is the expensive part a cold CLI invocation would repeat
// on every call.
type Bundle struct {
	Config      *config.Config
	Store       *session.Store
	Catalog     *pipeline.Catalog
	Structures  *structure.Loader
	Orch        *orchestrator.Orchestrator
	Checkpoints *checkpoint.Manager
	BuiltAt     time.Time
}

// NewBundle builds a warm bundle from configuration. The structure
// loader starts watching its directory so cached artifacts are
// invalidated when files change on disk.
func NewBundle(cfg *config.Config, log *logging.Logger) (*Bundle, error) {
	if log == nil {
		log = logging.NopLogger()
	}
	base := cfg.Paths.ResolveBaseDir()

	store, err := session.NewStore(session.Dir(base), session.Options{
		TTL:         cfg.Session.TTL(),
		SaveRetries: cfg.Store.SaveRetries,
		RetryDelay:  cfg.Store.RetryDelay(),
	}, log)
	if err != nil {
		return nil, err
	}

	loader := structure.NewLoader(structure.Dir(base), log)
	if err := loader.Watch(); err != nil {
		// Caching is an optimization; loads fall back to disk reads.
		log.Warn("structure watch unavailable, loads go to disk", "error", err)
	}

	cat := pipeline.Default

	var mem orchestrator.EpisodicMemory = memory.Nop{}
	if cfg.Memory.Enabled {
		mem = memory.NewFileMemory(base, cfg.Memory.MaxEpisodes, log)
	}

	checkpoints := checkpoint.NewManager(base, log)

	orch := orchestrator.New(orchestrator.Deps{
		Store:       store,
		Catalog:     cat,
		Expander:    pipeline.NewExpander(loader, cat),
		Prompts:     prompt.NewBuilder(),
		Memory:      mem,
		Checkpoints: checkpoints,
		Log:         log,
	})

	return &Bundle{
		Config:      cfg,
		Store:       store,
		Catalog:     cat,
		Structures:  loader,
		Orch:        orch,
		Checkpoints: checkpoints,
		BuiltAt:     time.Now(),
	}, nil
}

// Close releases the bundle's background resources.
func (b *Bundle) Close() {
	b.Structures.Close()
}

// Server is the warm daemon: it owns a bundle and serves requests over
// a unix socket until shut down, idle-expired, or signaled.
type Server struct {
	cfg    *config.Config
	log    *logging.Logger
	socket string

	// mu guards the bundle pointer. Handlers capture the pointer under
	// RLock and run against that capture, so a restart never tears state
	// out from under an in-flight request.
	mu     sync.RWMutex
	bundle *Bundle

	// opMu serializes session-mutating methods. Reads run concurrently.
	opMu sync.Mutex

	// idleTimeout and idleTick come from config; tests shorten them.
	idleTimeout time.Duration
	idleTick    time.Duration

	startTime   time.Time
	requests    atomic.Uint64
	lastRequest atomic.Int64 // unix nanos, 0 = never

	shutdownCh chan struct{}
	shutdown   sync.Once
}

// NewServer builds the warm bundle and prepares a server on the
// configured socket.
func NewServer(cfg *config.Config, log *logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.NopLogger()
	}
	log = log.WithComponent("daemon")

	bundle, err := NewBundle(cfg, log)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:         cfg,
		log:         log,
		socket:      cfg.Daemon.ResolveSocket(cfg.Paths.ResolveBaseDir()),
		bundle:      bundle,
		idleTimeout: cfg.Daemon.IdleTimeout(),
		idleTick:    idleCheckInterval,
		startTime:   time.Now(),
		shutdownCh:  make(chan struct{}),
	}, nil
}

// Socket returns the path the server listens on.
func (s *Server) Socket() string {
	return s.socket
}

// Run serves requests until ctx is canceled, a shutdown request
// arrives, or the idle timeout expires. The socket file is removed on
// the way out.
func (s *Server) Run(ctx context.Context) error {
	// A stale socket from a crashed daemon blocks the bind. Remove it;
	// if a live daemon holds it, the bind fails anyway.
	if err := os.Remove(s.socket); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socket)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socket, err)
	}
	if err := os.Chmod(s.socket, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	s.log.Info("daemon listening", "socket", s.socket, "pid", os.Getpid())

	var g run.Group

	// Accept loop.
	g.Add(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-s.shutdownCh:
					return nil
				default:
				}
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				return err
			}
			go s.serveConn(conn)
		}
	}, func(error) {
		ln.Close()
	})

	// Idle watchdog.
	if idle := s.idleTimeout; idle > 0 {
		stop := make(chan struct{})
		g.Add(func() error {
			ticker := time.NewTicker(s.idleTick)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return nil
				case <-ticker.C:
					if s.idleFor() >= idle {
						s.log.Info("idle timeout reached, exiting", "idle", s.idleFor().String())
						return nil
					}
				}
			}
		}, func(error) {
			close(stop)
		})
	}

	// Context cancellation and shutdown requests.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.shutdownCh:
				return nil
			}
		}, func(error) {
			cancel()
		})
	}

	err = g.Run()

	os.Remove(s.socket)
	s.currentBundle().Close()
	s.log.Info("daemon stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// idleFor reports how long the server has gone without a request.
func (s *Server) idleFor() time.Duration {
	last := s.lastRequest.Load()
	if last == 0 {
		return time.Since(s.startTime)
	}
	return time.Since(time.Unix(0, last))
}

func (s *Server) currentBundle() *Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle
}

// serveConn handles one client connection: decode a request, dispatch,
// encode the response, repeat until the client hangs up.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF {
				s.log.Debug("connection decode error", "error", err)
			}
			return
		}

		resp := s.dispatch(&req)
		if err := enc.Encode(resp); err != nil {
			s.log.Debug("connection encode error", "error", err)
			return
		}

		// shutdown responds first, then stops the server.
		if req.Method == "shutdown" {
			s.stop()
			return
		}
	}
}

func (s *Server) stop() {
	s.shutdown.Do(func() {
		close(s.shutdownCh)
	})
}

// mutatingMethods are serialized through opMu so two clients cannot
// interleave read-modify-write cycles on the same session file.
var mutatingMethods = map[string]bool{
	"init":     true,
	"next":     true, // may perform the one-time expansion write
	"complete": true,
	"fail":     true,
	"resume":   true,
	"pause":    true,
	"abort":    true,
	"delete":   true,
	"rollback": true,
	"clean":    true,
}

// dispatch routes one request to its handler and wraps the outcome in
// a response envelope.
func (s *Server) dispatch(req *Request) *Response {
	s.requests.Add(1)
	s.lastRequest.Store(time.Now().UnixNano())

	if mutatingMethods[req.Method] {
		s.opMu.Lock()
		defer s.opMu.Unlock()
	}

	result, err := s.handle(req.Method, req.Params)
	if err != nil {
		s.log.Debug("request failed", "method", req.Method, "error", err)
		return &Response{ID: req.ID, Error: wireError(err)}
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return &Response{ID: req.ID, Error: &Error{Code: CodeInternal, Message: "failed to encode result"}}
	}
	return &Response{ID: req.ID, Result: raw}
}

func (s *Server) handle(method string, params json.RawMessage) (any, error) {
	b := s.currentBundle()

	switch method {
	case "init":
		var p InitParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return b.Orch.Init(p.Query, p.Mode)

	case "next":
		p, err := sessionParams(params)
		if err != nil {
			return nil, err
		}
		return b.Orch.Next(p.SessionID)

	case "complete":
		var p CompleteParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return b.Orch.Complete(p.SessionID, p.AgentKey, p.Output)

	case "fail":
		var p FailParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return b.Orch.Fail(p.SessionID, p.AgentKey, p.Message)

	case "status":
		p, err := sessionParams(params)
		if err != nil {
			return nil, err
		}
		return b.Orch.Status(p.SessionID)

	case "list":
		var p ListParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return s.handleList(b, p)

	case "resume":
		p, err := sessionParams(params)
		if err != nil {
			return nil, err
		}
		return b.Orch.Resume(p.SessionID)

	case "pause":
		p, err := sessionParams(params)
		if err != nil {
			return nil, err
		}
		return b.Orch.Pause(p.SessionID)

	case "abort":
		p, err := sessionParams(params)
		if err != nil {
			return nil, err
		}
		return b.Orch.Abort(p.SessionID)

	case "delete":
		p, err := sessionParams(params)
		if err != nil {
			return nil, err
		}
		if err := b.Store.Delete(p.SessionID); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": p.SessionID}, nil

	case "checkpoints":
		p, err := sessionParams(params)
		if err != nil {
			return nil, err
		}
		if err := session.ValidateID(p.SessionID); err != nil {
			return nil, err
		}
		records, err := b.Checkpoints.List(p.SessionID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"session_id": p.SessionID, "checkpoints": records}, nil

	case "rollback":
		var p RollbackParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return s.handleRollback(b, p)

	case "clean":
		var p CleanParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return s.handleClean(b, p)

	case "health":
		return s.health(), nil

	case "restart":
		return s.handleRestart()

	case "shutdown":
		return map[string]string{"status": "stopping"}, nil

	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: "unknown method: " + method}
	}
}

func decodeParams(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return errors.NewValidationError("missing request params")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errors.NewValidationError("malformed request params: " + err.Error())
	}
	return nil
}

func sessionParams(raw json.RawMessage) (SessionParams, error) {
	var p SessionParams
	if err := decodeParams(raw, &p); err != nil {
		return p, err
	}
	if p.SessionID == "" {
		return p, errors.NewValidationError("session_id is required").WithField("session_id")
	}
	return p, nil
}

// handleList filters the session listing by recency and an optional
// glob over IDs and queries.
func (s *Server) handleList(b *Bundle, p ListParams) (any, error) {
	maxAge := b.Store.TTL()
	if p.MaxAgeDays > 0 {
		maxAge = time.Duration(p.MaxAgeDays) * 24 * time.Hour
	}

	sessions, err := b.Store.List(p.All, maxAge)
	if err != nil {
		return nil, err
	}

	if p.Match != "" {
		matcher, err := glob.Compile(p.Match)
		if err != nil {
			return nil, errors.NewValidationError("invalid match pattern: " + err.Error()).WithField("match")
		}
		filtered := sessions[:0]
		for _, sess := range sessions {
			if matcher.Match(sess.ID) || matcher.Match(sess.Query) || matcher.Match(sess.Slug) {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}

	items := make([]*orchestrator.StatusResult, 0, len(sessions))
	for _, sess := range sessions {
		st, err := b.Orch.Status(sess.ID)
		if err != nil {
			continue
		}
		items = append(items, st)
	}
	return map[string]any{"sessions": items, "count": len(items)}, nil
}

func (s *Server) handleRollback(b *Bundle, p RollbackParams) (any, error) {
	if err := session.ValidateID(p.SessionID); err != nil {
		return nil, err
	}

	target := p.CheckpointID
	if target == "" {
		latest, ok := b.Checkpoints.Latest(p.SessionID)
		if !ok {
			return nil, errors.NewNotFoundError("checkpoint", p.SessionID).WithCause(errors.ErrCheckpointNotFound)
		}
		target = latest.ID
	}

	if !b.Checkpoints.Rollback(p.SessionID, target) {
		return nil, errors.NewNotFoundError("checkpoint", target).WithCause(errors.ErrCheckpointNotFound)
	}
	return map[string]string{"session_id": p.SessionID, "restored": target}, nil
}

// handleClean removes terminal or stale sessions older than the cutoff,
// optionally narrowed by a glob.
func (s *Server) handleClean(b *Bundle, p CleanParams) (any, error) {
	cutoff := b.Store.TTL()
	if p.OlderThanDays > 0 {
		cutoff = time.Duration(p.OlderThanDays) * 24 * time.Hour
	}

	var matcher glob.Glob
	if p.Match != "" {
		m, err := glob.Compile(p.Match)
		if err != nil {
			return nil, errors.NewValidationError("invalid match pattern: " + err.Error()).WithField("match")
		}
		matcher = m
	}

	sessions, err := b.Store.List(true, 0)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0)
	for _, sess := range sessions {
		if time.Since(sess.LastActivityTime) < cutoff {
			continue
		}
		if matcher != nil && !matcher.Match(sess.ID) && !matcher.Match(sess.Query) && !matcher.Match(sess.Slug) {
			continue
		}
		if err := b.Store.Delete(sess.ID); err != nil {
			s.log.Warn("failed to remove session during clean", "session_id", sess.ID, "error", err)
			continue
		}
		removed = append(removed, sess.ID)
	}

	return map[string]any{"removed": removed, "count": len(removed)}, nil
}

func (s *Server) health() *HealthResult {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	h := &HealthResult{
		Status:        "ok",
		PID:           os.Getpid(),
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Requests:      s.requests.Load(),
		HeapAllocMB:   float64(mem.HeapAlloc) / (1 << 20),
		SysMB:         float64(mem.Sys) / (1 << 20),
	}
	if last := s.lastRequest.Load(); last != 0 {
		h.LastRequest = time.Unix(0, last).UTC().Format(time.RFC3339)
	}
	return h
}

// handleRestart rebuilds the bundle and swaps it in. In-flight requests
// keep the bundle they captured; the old one is closed after the swap.
func (s *Server) handleRestart() (any, error) {
	fresh, err := NewBundle(s.cfg, s.log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rebuild daemon state")
	}

	s.mu.Lock()
	old := s.bundle
	s.bundle = fresh
	s.mu.Unlock()
	old.Close()

	s.requests.Store(0)
	s.log.Info("daemon state rebuilt")
	return map[string]string{"status": "restarted"}, nil
}

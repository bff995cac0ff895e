package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/batonworks/baton/internal/config"
	"github.com/batonworks/baton/internal/errors"
	"github.com/batonworks/baton/internal/logging"
)

// startupPollInterval is how often a client probes the socket while
// waiting for a freshly spawned daemon.
const startupPollInterval = 100 * time.Millisecond

// dialTimeout bounds a single connection attempt.
const dialTimeout = time.Second

// Client calls the daemon over its unix socket, spawning it first when
// it is not running and auto-start is enabled.
//
// A Client is safe for concurrent use. Each call opens its own
// connection; the expensive state lives in the daemon, not here.
type Client struct {
	socket         string
	baseDir        string
	autoStart      bool
	callTimeout    time.Duration
	startupTimeout time.Duration
	log            *logging.Logger

	reqID atomic.Uint64

	// spawnMu latches the spawn attempt: one failed daemon start must not
	// turn every subsequent call into a fork storm.
	spawnMu        sync.Mutex
	spawnAttempted bool
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.Config, log *logging.Logger) *Client {
	if log == nil {
		log = logging.NopLogger()
	}
	base := cfg.Paths.ResolveBaseDir()
	return &Client{
		socket:         cfg.Daemon.ResolveSocket(base),
		baseDir:        base,
		autoStart:      cfg.Daemon.AutoStart,
		callTimeout:    cfg.Daemon.CallTimeout(),
		startupTimeout: cfg.Daemon.StartupTimeout(),
		log:            log.WithComponent("daemon-client"),
	}
}

// DisableAutoStart turns off daemon spawning for this client, e.g. for
// --no-daemon-autostart.
func (c *Client) DisableAutoStart() {
	c.autoStart = false
}

// Call invokes one daemon method and decodes the result into out.
// Pass a nil out to discard the result.
func (c *Client) Call(method string, params any, out any) error {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return errors.Wrap(err, "failed to encode request params")
		}
		raw = data
	}

	conn, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	id := c.reqID.Add(1)
	deadline := time.Now().Add(c.callTimeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return errors.NewDaemonError("failed to arm call deadline", err).WithMethod(method)
	}

	if err := json.NewEncoder(conn).Encode(Request{ID: id, Method: method, Params: raw}); err != nil {
		return c.callError(method, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return c.callError(method, err)
	}
	if resp.ID != id {
		return errors.NewDaemonError(
			fmt.Sprintf("response id %d does not match request id %d", resp.ID, id), nil,
		).WithMethod(method)
	}
	if resp.Error != nil {
		return &RemoteError{Method: method, Wire: *resp.Error}
	}

	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return errors.NewDaemonError("failed to decode daemon result", err).WithMethod(method)
	}
	return nil
}

// Running reports whether a daemon currently accepts connections.
func (c *Client) Running() bool {
	conn, err := net.DialTimeout("unix", c.socket, dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Socket returns the socket path this client targets.
func (c *Client) Socket() string {
	return c.socket
}

// callError classifies a transport failure: deadline overruns become
// timeout errors, everything else a daemon error.
func (c *Client) callError(method string, err error) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return errors.NewTimeoutError("daemon call "+method, c.callTimeout).WithCause(err)
	}
	return errors.NewDaemonError("daemon call failed", err).WithMethod(method)
}

// connect dials the daemon, spawning it first if allowed.
func (c *Client) connect() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socket, dialTimeout)
	if err == nil {
		return conn, nil
	}

	if !c.autoStart {
		return nil, errors.NewDaemonError("daemon is not running and auto-start is disabled", errors.ErrDaemonUnavailable).
			WithSocket(c.socket)
	}

	if err := c.ensureRunning(); err != nil {
		return nil, err
	}
	conn, err = net.DialTimeout("unix", c.socket, dialTimeout)
	if err != nil {
		return nil, errors.NewDaemonError("daemon started but socket is not connectable", errors.ErrDaemonUnavailable).
			WithSocket(c.socket)
	}
	return conn, nil
}

// ensureRunning spawns the daemon (at most once per client) and waits
// for its socket to accept connections.
func (c *Client) ensureRunning() error {
	c.spawnMu.Lock()
	if !c.spawnAttempted {
		c.spawnAttempted = true
		if err := c.spawn(); err != nil {
			c.spawnMu.Unlock()
			return errors.NewDaemonError("failed to spawn daemon", err).WithSocket(c.socket)
		}
	}
	c.spawnMu.Unlock()

	deadline := time.Now().Add(c.startupTimeout)
	for {
		conn, err := net.DialTimeout("unix", c.socket, dialTimeout)
		if err == nil {
			conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return errors.NewDaemonError("daemon did not start within the startup timeout", errors.ErrDaemonUnavailable).
				WithSocket(c.socket)
		}
		time.Sleep(startupPollInterval)
	}
}

// spawn starts a detached daemon process running this same binary.
func (c *Client) spawn() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot resolve own executable: %w", err)
	}

	cmd := exec.Command(exe, "daemon", "run",
		"--base-dir", c.baseDir,
		"--socket", c.socket,
	)
	cmd.Env = spawnEnv()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return err
	}
	c.log.Debug("spawned daemon", "pid", cmd.Process.Pid, "socket", c.socket)

	// Reap the child if it exits while we are still alive, so a daemon
	// that dies during startup does not linger as a zombie.
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// spawnEnv passes only well-known variables to the daemon. The daemon
// re-reads its own config; the client's shell environment should not
// leak into a long-lived background process.
func spawnEnv() []string {
	allowed := []string{"PATH", "HOME", "USER", "SHELL", "TMPDIR", "LANG"}
	prefixes := []string{"LC_", "XDG_", "BATON_"}

	var env []string
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		keep := false
		for _, a := range allowed {
			if name == a {
				keep = true
				break
			}
		}
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				keep = true
				break
			}
		}
		if keep {
			env = append(env, kv)
		}
	}
	return env
}

// RemoteError is a daemon-reported call failure, carrying the wire
// error so callers can branch on its kind.
type RemoteError struct {
	Method string
	Wire   Error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return e.Wire.Message
}

// Kind returns the remote error's category tag.
func (e *RemoteError) Kind() string {
	if e.Wire.Kind != "" {
		return e.Wire.Kind
	}
	return string(errors.KindInternal)
}

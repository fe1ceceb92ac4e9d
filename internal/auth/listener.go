package auth

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"canopy/pkg/logging"
)

// Environment variable names used to hand the listener process its
// configuration. Secrets travel through the environment, not argv, so the
// nonce and client id never show up in process listings.
const (
	EnvAppName      = "CANOPY_APP_NAME"
	EnvNonce        = "CANOPY_AUTH_STATE"
	EnvAuthorizeURL = "CANOPY_AUTH_URL"
	EnvClientID     = "CANOPY_AUTH_CLIENT_ID"
	EnvHandoffFile  = "CANOPY_AUTH_HANDOFF_FILE"
)

// ListenerEnvironment is the configuration bundle passed to the listener
// process for one login attempt. Immutable once constructed.
type ListenerEnvironment struct {
	// AppName is the display name shown on the browser landing page.
	AppName string

	// Nonce is the state value the redirect must echo back.
	Nonce string

	// AuthorizeURL is the authorization endpoint, used by the listener for
	// its retry link on the error page.
	AuthorizeURL string

	// ClientID is the public OAuth client identifier.
	ClientID string

	// HandoffPath is the absolute path of the handoff file.
	HandoffPath string
}

// ListenerProcess manages the lifecycle of the short-lived local HTTP
// listener child process that receives the browser redirect.
type ListenerProcess struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer

	done     chan struct{}
	stopOnce sync.Once
}

// listenerCommand is the hidden subcommand of the canopy binary that runs
// the listener. The CLI re-executes itself, so no external script or second
// binary needs to be shipped.
const listenerCommand = "auth-listener"

// StartListener launches the listener child process bound to
// 127.0.0.1:<port>. Configuration is passed via environment variables and
// stderr is captured so a crashing listener can be diagnosed.
//
// The caller must verify IsRunning after a short grace period; a listener
// that exits immediately is a fatal start failure.
func StartListener(env ListenerEnvironment, port int) (*ListenerProcess, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate own executable: %w", err)
	}

	cmd := exec.Command(exe, listenerCommand, strconv.Itoa(port))
	cmd.Env = append(os.Environ(),
		EnvAppName+"="+env.AppName,
		EnvNonce+"="+env.Nonce,
		EnvAuthorizeURL+"="+env.AuthorizeURL,
		EnvClientID+"="+env.ClientID,
		EnvHandoffFile+"="+env.HandoffPath,
	)

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start login listener: %w", err)
	}

	p := &ListenerProcess{
		cmd:    cmd,
		stderr: stderr,
		done:   make(chan struct{}),
	}

	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()

	logging.Debug("Listener", "Started login listener on 127.0.0.1:%d (pid %d)", port, cmd.Process.Pid)
	return p, nil
}

// IsRunning reports whether the listener process is still alive.
func (p *ListenerProcess) IsRunning() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Stderr returns the error output captured from the listener so far.
func (p *ListenerProcess) Stderr() string {
	return p.stderr.String()
}

// Stop sends a graceful termination signal to the listener. It is
// fire-and-forget: the flow never blocks on listener shutdown, and calling
// Stop on an already-exited process is a no-op.
func (p *ListenerProcess) Stop() {
	p.stopOnce.Do(func() {
		if !p.IsRunning() {
			return
		}
		if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
			// Interrupt is unsupported on some platforms; fall back hard.
			_ = p.cmd.Process.Kill()
		}
		logging.Debug("Listener", "Stopped login listener (pid %d)", p.cmd.Process.Pid)
	})
}

package auth

import (
	"context"
	"fmt"
	"io"
	"time"

	"canopy/pkg/logging"

	"github.com/briandowns/spinner"
	"golang.org/x/oauth2"
)

// FlowState tracks the login orchestration state machine.
type FlowState int

const (
	// StateIdle means the flow has not started yet.
	StateIdle FlowState = iota

	// StatePortAllocated means a loopback redirect port has been reserved.
	StatePortAllocated

	// StateListenerStarted means the listener process is up.
	StateListenerStarted

	// StateAwaitingCode means the flow is polling for the browser redirect.
	StateAwaitingCode

	// StateCodeReceived means the authorization code has been captured.
	StateCodeReceived

	// StateTokenExchanged means the code was traded for a token set.
	StateTokenExchanged

	// StateSessionSaved is the terminal success state.
	StateSessionSaved

	// StateFailed is the terminal failure state.
	StateFailed
)

// String returns the string representation of the flow state.
func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePortAllocated:
		return "port_allocated"
	case StateListenerStarted:
		return "listener_started"
	case StateAwaitingCode:
		return "awaiting_code"
	case StateCodeReceived:
		return "code_received"
	case StateTokenExchanged:
		return "token_exchanged"
	case StateSessionSaved:
		return "session_saved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionWriter persists a freshly exchanged token set, superseding any
// previous session. Implemented by session.Persister.
type SessionWriter interface {
	Replace(ctx context.Context, token *oauth2.Token) error
}

// listenerHandle abstracts the listener process for the orchestrator.
// *ListenerProcess implements it; tests substitute fakes.
type listenerHandle interface {
	IsRunning() bool
	Stderr() string
	Stop()
}

const (
	// defaultStartGrace is how long the flow waits after spawning the
	// listener before checking that it survived startup.
	defaultStartGrace = 500 * time.Millisecond

	// defaultPollInterval is the handoff polling cadence while waiting for
	// the browser step.
	defaultPollInterval = 300 * time.Millisecond
)

// Flow composes the login building blocks into the end-to-end browser login
// and is the only entry point surrounding code calls. One Flow value serves
// one attempt; callers serialize attempts against the same session store.
type Flow struct {
	// AppName is the display name shown on the browser landing page.
	AppName string

	// AuthorizeURL is the authorization endpoint the browser is sent to.
	AuthorizeURL string

	// PortRangeStart and PortRangeEnd bound the loopback redirect ports.
	PortRangeStart int
	PortRangeEnd   int

	// Timeout caps the whole browser wait; zero waits indefinitely while
	// the listener process is alive.
	Timeout time.Duration

	// Exchanger performs the code-for-token exchange.
	Exchanger *Exchanger

	// Sessions persists the resulting token set.
	Sessions SessionWriter

	// OpenBrowser opens the authorization URL; on failure the URL is
	// printed for manual use. Defaults are wired by the caller.
	OpenBrowser func(url string) error

	// Out receives user-facing progress output.
	Out io.Writer

	// Quiet suppresses progress output and the spinner.
	Quiet bool

	// Test seams; zero values select the real implementations.
	startListener func(env ListenerEnvironment, port int) (listenerHandle, error)
	startGrace    time.Duration
	pollInterval  time.Duration

	state FlowState
}

// State returns the current state of the flow, mainly for diagnostics.
func (f *Flow) State() FlowState {
	return f.state
}

func (f *Flow) setState(s FlowState) {
	logging.Debug("Login", "Flow state %s -> %s", f.state, s)
	f.state = s
}

func (f *Flow) fail(err error) error {
	f.setState(StateFailed)
	return err
}

func (f *Flow) printf(format string, args ...interface{}) {
	if !f.Quiet && f.Out != nil {
		fmt.Fprintf(f.Out, format, args...)
	}
}

// Run executes the login flow: allocate a port, start the listener, send the
// operator's browser to the authorization URL, wait for the code handoff,
// exchange the code, and persist the new session.
//
// Cleanup (listener stop, handoff removal) runs exactly once on every
// terminal path, including cancellation via ctx.
func (f *Flow) Run(ctx context.Context) (*oauth2.Token, error) {
	if f.startListener == nil {
		f.startListener = func(env ListenerEnvironment, port int) (listenerHandle, error) {
			return StartListener(env, port)
		}
	}
	if f.startGrace == 0 {
		f.startGrace = defaultStartGrace
	}
	if f.pollInterval == 0 {
		f.pollInterval = defaultPollInterval
	}

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, f.fail(err)
	}

	port, err := AllocatePort(f.PortRangeStart, f.PortRangeEnd)
	if err != nil {
		return nil, f.fail(err)
	}
	f.setState(StatePortAllocated)

	handoff, err := NewHandoff()
	if err != nil {
		return nil, f.fail(err)
	}
	defer handoff.Close()

	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/", port)

	lp, err := f.startListener(ListenerEnvironment{
		AppName:      f.AppName,
		Nonce:        nonce,
		AuthorizeURL: f.AuthorizeURL,
		ClientID:     f.Exchanger.clientID,
		HandoffPath:  handoff.Path(),
	}, port)
	if err != nil {
		return nil, f.fail(err)
	}
	defer lp.Stop()
	f.setState(StateListenerStarted)

	// Short grace period: a listener that exits immediately (port raced
	// away, bad environment) is a fatal start failure.
	select {
	case <-time.After(f.startGrace):
	case <-ctx.Done():
		return nil, f.fail(ctx.Err())
	}
	if !lp.IsRunning() {
		return nil, f.fail(&ListenerStartError{Stderr: lp.Stderr()})
	}

	authURL := f.Exchanger.AuthCodeURL(f.AuthorizeURL, nonce, redirectURI)
	f.printf("Opening browser for login...\n")
	if f.OpenBrowser == nil || f.OpenBrowser(authURL) != nil {
		f.printf("Could not open a browser automatically.\n\nPlease open this URL:\n  %s\n\n", authURL)
	}

	f.setState(StateAwaitingCode)
	code, err := f.awaitCode(ctx, handoff, lp)
	if err != nil {
		return nil, f.fail(err)
	}
	f.setState(StateCodeReceived)

	token, err := f.Exchanger.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, f.fail(err)
	}
	f.setState(StateTokenExchanged)

	if err := f.Sessions.Replace(ctx, token); err != nil {
		return nil, f.fail(fmt.Errorf("failed to save session: %w", err))
	}
	f.setState(StateSessionSaved)

	return token, nil
}

// awaitCode polls the handoff channel until the code arrives, the listener
// dies, the handoff vanishes, the optional timeout fires, or ctx is
// cancelled. The select keeps Ctrl+C responsive between polls.
func (f *Flow) awaitCode(ctx context.Context, handoff *Handoff, lp listenerHandle) (string, error) {
	if !f.Quiet {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Waiting for you to finish logging in via your browser..."
		s.Start()
		defer s.Stop()
	}

	var deadline <-chan time.Time
	if f.Timeout > 0 {
		timer := time.NewTimer(f.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", fmt.Errorf("timed out after %s waiting for browser login", f.Timeout)
		case <-ticker.C:
			code, err := handoff.Poll()
			if err != nil {
				return "", err
			}
			if code != "" {
				return code, nil
			}
			if lp.IsRunning() {
				continue
			}
			// The listener exited. Poll once more: it may have written
			// the code and shut down between our checks.
			code, err = handoff.Poll()
			if err != nil {
				return "", err
			}
			if code != "" {
				return code, nil
			}
			return "", &NoCodeReceivedError{}
		}
	}
}

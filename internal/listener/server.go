package listener

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"canopy/internal/auth"
)

//go:embed templates/success.html
var successHTML string

//go:embed templates/error.html
var errorHTML string

// Config carries the listener's per-attempt configuration, received from the
// parent process through environment variables (never argv).
type Config struct {
	// AppName is the display name shown on the landing pages.
	AppName string

	// Nonce is the expected state value; redirects carrying any other
	// state are rejected without writing a code.
	Nonce string

	// AuthorizeURL is used for the retry link on the error page.
	AuthorizeURL string

	// ClientID is the public OAuth client identifier.
	ClientID string

	// HandoffPath is where the captured authorization code is written.
	HandoffPath string
}

// ConfigFromEnv builds the listener configuration from the environment set
// up by the parent process.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		AppName:      os.Getenv(auth.EnvAppName),
		Nonce:        os.Getenv(auth.EnvNonce),
		AuthorizeURL: os.Getenv(auth.EnvAuthorizeURL),
		ClientID:     os.Getenv(auth.EnvClientID),
		HandoffPath:  os.Getenv(auth.EnvHandoffFile),
	}
	if cfg.Nonce == "" {
		return Config{}, fmt.Errorf("%s is not set", auth.EnvNonce)
	}
	if cfg.HandoffPath == "" {
		return Config{}, fmt.Errorf("%s is not set", auth.EnvHandoffFile)
	}
	return cfg, nil
}

// Server is the one-shot HTTP listener that receives the browser redirect
// carrying the authorization code. It handles exactly one redirect, renders
// a landing page, and shuts down.
type Server struct {
	cfg Config

	once sync.Once
	done chan struct{}
}

// NewServer creates a listener server for one login attempt.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// lingerAfterRedirect gives the browser time to receive the landing page
// before the server goes away.
const lingerAfterRedirect = 1 * time.Second

// Run binds 127.0.0.1:<port>, serves until one redirect has been handled or
// ctx is cancelled, then shuts down. It returns a non-nil error only for
// failures to bind or serve; a handled redirect (accepted or rejected) is a
// normal exit.
func (s *Server) Run(ctx context.Context, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRedirect)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.done:
		time.Sleep(lingerAfterRedirect)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return nil
}

// handleRedirect processes the browser redirect. Only the first request is
// acted upon; anything after that gets a 400.
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.once.Do(func() {
		handled = true
		s.processRedirect(w, r)
		close(s.done)
	})

	if !handled {
		http.Error(w, "Login already processed", http.StatusBadRequest)
	}
}

func (s *Server) processRedirect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")

	if errCode := query.Get("error"); errCode != "" {
		s.renderError(w, errCode, query.Get("error_description"))
		return
	}

	// The state must echo the nonce byte for byte. A mismatch means a
	// forged or replayed callback; the code is never written, so the
	// parent sees the attempt end without a code.
	if state != s.cfg.Nonce {
		fmt.Fprintln(os.Stderr, "rejected login callback with mismatched state")
		s.renderError(w, "state_mismatch", "The login response could not be verified. Please try again.")
		return
	}

	if code == "" {
		s.renderError(w, "missing_code", "The login response did not include an authorization code.")
		return
	}

	if err := auth.WriteHandoffFile(s.cfg.HandoffPath, code); err != nil {
		fmt.Fprintf(os.Stderr, "failed to hand off authorization code: %v\n", err)
		s.renderError(w, "handoff_failed", "The login code could not be stored locally.")
		return
	}

	s.renderSuccess(w)
}

func (s *Server) renderSuccess(w http.ResponseWriter) {
	tmpl := template.Must(template.New("success").Parse(successHTML))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, map[string]string{"AppName": s.cfg.AppName}); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, errCode, description string) {
	tmpl := template.Must(template.New("error").Parse(errorHTML))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, map[string]string{
		"AppName":     s.cfg.AppName,
		"Error":       errCode,
		"Description": description,
		"RetryURL":    s.cfg.AuthorizeURL,
	}); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

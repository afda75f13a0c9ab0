package slack

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// CallbackResult contains the parameters extracted from a successful OAuth
// redirect. It is produced at most once per listener run.
type CallbackResult struct {
	// Code is the authorization code received from Slack.
	Code string
	// State is the state parameter echoed back in the redirect; by the time
	// a result is produced it has already been validated against the
	// expected value.
	State string
}

// CallbackServer handles the local HTTP listener for the OAuth redirect.
// It accepts exactly one meaningful request per login attempt: the first
// terminal outcome (success or failure) wins and every later request finds
// the listener gone. The whole accept-parse-validate-respond sequence runs
// under the wall-clock timeout passed to WaitForCallback.
type CallbackServer struct {
	// expectedState is the CSRF state generated for this login attempt.
	expectedState string
	// port is the requested listen port; 0 asks the OS for an ephemeral one.
	port int

	listener net.Listener
	server   *http.Server

	// resultChan and errorChan form the single result slot: both have
	// capacity one and only the first send before consumption matters.
	resultChan chan *CallbackResult
	errorChan  chan error

	mu     sync.Mutex
	closed bool
}

// NewCallbackServer creates a callback server bound to the given local port
// that will validate redirects against expectedState.
func NewCallbackServer(port int, expectedState string) *CallbackServer {
	return &CallbackServer{
		expectedState: expectedState,
		port:          port,
		resultChan:    make(chan *CallbackResult, 1),
		errorChan:     make(chan error, 1),
	}
}

// Start binds the TCP listener on 127.0.0.1 and begins serving in the
// background. Port 0 is permitted; the assigned port is available from Port
// afterwards.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("callback server is already running")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind callback port %d: %w", s.port, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if errServe := s.server.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			s.sendError(fmt.Errorf("callback server failed: %w", errServe))
		}
	}()

	log.Debugf("callback server listening on %s", listener.Addr())
	return nil
}

// Port returns the port the listener is bound to. It is only meaningful
// after Start has succeeded.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.port
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// WaitForCallback blocks until the redirect produces a terminal outcome or
// the timeout elapses, whichever is first. The listener is torn down before
// returning on every path, so no connection is accepted afterwards.
//
// Returns:
//   - *CallbackResult: The code and validated state on success
//   - error: A *StateMismatchError, *ProviderDeniedError, ErrMissingParams,
//     or *CallbackTimeoutError describing the failure
func (s *CallbackServer) WaitForCallback(timeout time.Duration) (*CallbackResult, error) {
	defer s.Close()

	select {
	case result := <-s.resultChan:
		return result, nil
	case err := <-s.errorChan:
		return nil, err
	case <-time.After(timeout):
		return nil, &CallbackTimeoutError{Timeout: timeout}
	}
}

// Close tears down the listener. It is safe to call multiple times.
func (s *CallbackServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.server == nil {
		return
	}
	s.closed = true

	// Close rather than Shutdown: after the single meaningful request there
	// is nothing worth draining, and a timed-out listener must stop
	// accepting immediately.
	if err := s.server.Close(); err != nil {
		log.Debugf("callback server close: %v", err)
	}
	log.Debug("callback server closed")
}

// handleCallback processes the OAuth redirect. Validation order: a provider
// error parameter is reported verbatim; otherwise code and state must both be
// present and state must equal the expected value byte-for-byte; anything
// else is a terminal malformed request.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	log.Debug("received OAuth callback request")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	errorParam := query.Get("error")

	switch {
	case code != "" && state != "":
		if state != s.expectedState {
			err := &StateMismatchError{Expected: s.expectedState, Actual: state}
			log.Error(err.Error())
			s.respond(w, http.StatusBadRequest, renderFailurePage("The login response did not match this login attempt."))
			s.sendError(err)
			return
		}
		s.respond(w, http.StatusOK, LoginSuccessHTML)
		s.sendResult(&CallbackResult{Code: code, State: state})

	case errorParam != "":
		log.Errorf("OAuth error received from provider: %s", errorParam)
		s.respond(w, http.StatusBadRequest, renderFailurePage(fmt.Sprintf("Slack reported: %s", errorParam)))
		s.sendError(&ProviderDeniedError{Code: errorParam})

	default:
		log.Error("OAuth callback missing required parameters")
		s.respond(w, http.StatusBadRequest, renderFailurePage("The redirect was missing required parameters."))
		s.sendError(ErrMissingParams)
	}
}

// respond writes the HTML page and flushes it before the result is committed,
// so the browser tab renders even though the listener is torn down right
// after the outcome is consumed.
func (s *CallbackServer) respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Errorf("failed to write callback response: %v", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// sendResult commits a success outcome to the result slot without blocking.
// If a terminal outcome was already committed the result is discarded.
func (s *CallbackServer) sendResult(result *CallbackResult) {
	select {
	case s.resultChan <- result:
		log.Debug("OAuth result committed")
	default:
		log.Warn("OAuth result slot already filled, dropping result")
	}
}

// sendError commits a failure outcome to the result slot without blocking.
func (s *CallbackServer) sendError(err error) {
	select {
	case s.errorChan <- err:
	default:
		log.Warnf("OAuth error slot already filled, dropping: %v", err)
	}
}

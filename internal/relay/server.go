package relay

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"catchpost/internal/config"
	"catchpost/internal/format"
	"catchpost/internal/metrics"
)

const maxTriggerBodySize = 1 << 20 // 1MB

// Server is the HTTP front of the relay. Apart from the manual trigger and
// the optional metrics endpoint, every route (including / and /health)
// falls through to the relay pipeline, which produces the response.
type Server struct {
	cfg    *config.Config
	relay  *Relay
	logger *slog.Logger
	server *http.Server
}

// ServerConfig configures the relay HTTP server.
type ServerConfig struct {
	Config *config.Config
	Relay  *Relay
	Logger *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		cfg:    cfg.Config,
		relay:  cfg.Relay,
		logger: cfg.Logger,
	}
}

// Handler builds the route table. Exposed separately so tests can drive it
// without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /slack/test", s.handleManualTrigger)
	if s.cfg.Metrics.Enabled {
		// Scrapes must not notify Slack, so the endpoint sits in front
		// of the catch-all. When metrics are disabled the path falls
		// through and is relayed like any other request.
		mux.HandleFunc("GET "+s.cfg.Metrics.Endpoint, metrics.Collector.Handler())
	}
	mux.HandleFunc("/", s.relay.Handle)
	return mux
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.cfg.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("relay server starting", "addr", addr, "environment", s.cfg.Environment)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("relay server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("relay server: %w", err)
	}
}

// manualTriggerRequest is the expected JSON body for POST /slack/test.
type manualTriggerRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
	Key     string `json:"key"`
}

// handleManualTrigger sends an arbitrary message through the forwarding
// client, bypassing the capture pipeline. The key must match the
// configured secret exactly; nothing is forwarded on a mismatch.
func (s *Server) handleManualTrigger(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBodySize))
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	var req manualTriggerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(s.cfg.SecretKey)) != 1 {
		metrics.InvalidKeys.Inc()
		s.logger.Warn("manual trigger rejected", "remote", r.RemoteAddr)
		writeJSON(rw, http.StatusUnauthorized, map[string]string{"error": "Invalid key"})
		return
	}

	text := format.Notification(req.Text, "POST", "/slack/test", map[string]string{"test": "manual message"})

	// Result deliberately ignored: the trigger acknowledges acceptance,
	// not delivery.
	s.relay.Send(r.Context(), text, req.Channel)

	writeJSON(rw, http.StatusOK, map[string]string{"status": "Message sent to Slack"})
}

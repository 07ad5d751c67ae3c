// Package dashboard broadcasts synchronization runs to WebSocket clients.
//
// Connected clients receive a message when a run starts, progress updates,
// one message per failed entity, a completion summary and the local
// database statistics. A client that falls behind is disconnected rather
// than slowing down the others.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	MessageTypeSyncStarted  MessageType = "sync_started"
	MessageTypeSyncProgress MessageType = "sync_progress"
	MessageTypeSyncFailure  MessageType = "sync_failure"
	MessageTypeSyncComplete MessageType = "sync_complete"
	MessageTypeStats        MessageType = "stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

const (
	queueSize    = 64
	writeTimeout = 5 * time.Second
)

// client is one WebSocket connection with its own outgoing queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close(code, reason)
	})
}

// Config holds server configuration
type Config struct {
	// Host to bind, empty for all interfaces.
	Host string

	// Port to listen on. 0 picks a free port.
	Port int

	Logger *zerolog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{Port: 8080}
}

// Server fans dashboard messages out to WebSocket clients.
type Server struct {
	addr     string
	listener net.Listener
	http     *http.Server
	logger   zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte // last stats message, greeting for new clients

	messages chan Message
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates a dashboard server. Call Start to listen.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = config.Logger.With().Str("component", "dashboard").Logger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:     net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
		logger:   logger,
		clients:  make(map[*client]struct{}),
		messages: make(chan Message, 100),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(2)
	go s.fanOut()
	go func() {
		defer s.wg.Done()
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Dashboard server listening")
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Dashboard server failed")
		}
	}()
	return nil
}

// Stop disconnects every client and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		c.close(websocket.StatusGoingAway, "server shutting down")
	}
	s.mu.Unlock()

	var err error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := s.http.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("server shutdown error: %w", serr)
		}
	}
	s.wg.Wait()
	s.logger.Debug().Msg("Dashboard server stopped")
	return err
}

// Broadcast queues msg for every client. It never blocks; when the queue
// is full the message is dropped.
func (s *Server) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.Type == MessageTypeStats {
		if data, err := json.Marshal(msg); err == nil {
			s.mu.Lock()
			s.latest = data
			s.mu.Unlock()
		}
	}
	select {
	case s.messages <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Warn().Str("type", string(msg.Type)).Msg("Dashboard queue full, message dropped")
	}
}

func (s *Server) fanOut() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.messages:
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error().Err(err).Msg("Failed to marshal message")
				continue
			}

			s.mu.Lock()
			for c := range s.clients {
				select {
				case c.send <- data:
				default:
					delete(s.clients, c)
					c.close(websocket.StatusPolicyViolation, "client too slow")
					s.logger.Warn().Msg("Dropped slow dashboard client")
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, queueSize)}

	s.mu.Lock()
	greeting := s.latest
	if greeting == nil {
		greeting, _ = json.Marshal(Message{Type: MessageTypeStats, Timestamp: time.Now().UTC()})
	}
	c.send <- greeting
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()
	s.logger.Debug().Int("clients", count).Msg("Client connected")

	go s.write(c)
	go s.read(c)
}

// write drains the client's queue until it is closed.
func (s *Server) write(c *client) {
	for data := range c.send {
		ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.remove(c)
			return
		}
	}
}

// read detects disconnects; client messages are ignored.
func (s *Server) read(c *client) {
	defer s.remove(c)
	for {
		if _, _, err := c.conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	count := len(s.clients)
	s.mu.Unlock()
	if ok {
		c.close(websocket.StatusNormalClosure, "")
		s.logger.Debug().Int("clients", count).Msg("Client disconnected")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>bimsync dashboard</title></head>
<body>
<h1>bimsync dashboard</h1>
<p>Runs are streamed on <code>ws://%s/ws</code> as JSON messages:
sync_started, sync_progress, sync_failure, sync_complete and stats.</p>
<p><a href="/health">/health</a></p>
</body>
</html>`, r.Host)
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

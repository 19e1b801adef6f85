package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bacnet-stack/bacnet-go/pkg/log"
)

// DefaultPort is 0xBAC0, the port BACnet/IP uses.
const DefaultPort = 47808

// Server errors.
var (
	ErrServerRunning    = errors.New("server already running")
	ErrConnectionClosed = errors.New("connection closed")
	ErrUnknownConn      = errors.New("unknown connection")
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on, e.g. ":47808" or "127.0.0.1:0".
	Address string

	// MaxMessageSize bounds frame payloads.
	MaxMessageSize uint32

	// Logger receives frame and connection state events.
	Logger log.Logger

	OnConnect    func(conn *ServerConn)
	OnDisconnect func(conn *ServerConn)
	OnMessage    func(conn *ServerConn, msg []byte)
	OnError      func(conn *ServerConn, err error)
}

// Server accepts TCP connections from clients. Each connection gets its
// own read goroutine and a random connection id.
type Server struct {
	config   ServerConfig
	listener net.Listener

	connsMu sync.RWMutex
	conns   map[string]*ServerConn

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: config,
		conns:  make(map[string]*ServerConn),
	}
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrServerRunning
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every connection, then waits for the
// connection goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	s.listener.Close()

	s.connsMu.RLock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.connsMu.RUnlock()

	s.wg.Wait()
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Conn looks up an open connection by id.
func (s *Server) Conn(id string) (*ServerConn, bool) {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	c, ok := s.conns[id]
	return c, ok
}

// Send writes a message to the connection with the given id.
func (s *Server) Send(id string, data []byte) error {
	c, ok := s.Conn(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConn, id)
	}
	return c.Send(data)
}

// Broadcast writes a message to every open connection and returns the
// number of successful sends.
func (s *Server) Broadcast(data []byte) int {
	s.connsMu.RLock()
	conns := make([]*ServerConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()

	n := 0
	for _, c := range conns {
		if c.Send(data) == nil {
			n++
		}
	}
	return n
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() && s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	id := uuid.New().String()
	framer := NewFramer(conn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, id)
	}
	sc := &ServerConn{
		id:      id,
		conn:    conn,
		framer:  framer,
		server:  s,
		closeCh: make(chan struct{}),
	}

	s.connsMu.Lock()
	s.conns[id] = sc
	s.connsMu.Unlock()
	s.logState(sc, "", "CONNECTED")

	if s.config.OnConnect != nil {
		s.config.OnConnect(sc)
	}

	sc.readLoop()
	sc.Close()

	s.connsMu.Lock()
	delete(s.conns, id)
	s.connsMu.Unlock()
	s.logState(sc, "CONNECTED", "DISCONNECTED")

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sc)
	}
}

func (s *Server) logState(sc *ServerConn, from, to string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: sc.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   sc.RemoteAddr().String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: from,
			NewState: to,
		},
	})
}

// ServerConn is one accepted client connection.
type ServerConn struct {
	id        string
	conn      net.Conn
	framer    *Framer
	server    *Server
	closeCh   chan struct{}
	closeOnce sync.Once
}

// ID returns the connection id.
func (c *ServerConn) ID() string {
	return c.id
}

// RemoteAddr returns the client address.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send writes one message.
func (c *ServerConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Close closes the connection. It is safe to call more than once.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				if c.server.running.Load() && c.server.config.OnError != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					c.server.config.OnError(c, err)
				}
			}
			return
		}
		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}

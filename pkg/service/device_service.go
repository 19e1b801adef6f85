package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/cov"
	"github.com/bacnet-stack/bacnet-go/pkg/device"
	"github.com/bacnet-stack/bacnet-go/pkg/log"
	"github.com/bacnet-stack/bacnet-go/pkg/persistence"
	"github.com/bacnet-stack/bacnet-go/pkg/transport"
	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

// historyPruneInterval is how often Poll drops expired history.
const historyPruneInterval = time.Hour

// DeviceService serves one device to its clients. It decodes requests,
// routes them to the device, tracks COV subscriptions and delivers the
// resulting notifications.
type DeviceService struct {
	mu sync.RWMutex

	config Config
	device *device.Device
	cov    *cov.Manager
	sender Sender

	// Communication control
	commState bacnet.CommunicationState
	commUntil time.Time

	eventHandlers []EventHandler

	// Logger for debug output (optional)
	logger *slog.Logger

	// Protocol logger for structured event capture (optional)
	protocolLogger log.Logger

	// Persistence (optional, set by CLI)
	stateStore *persistence.DeviceStateStore
	history    *persistence.HistoryStore
	lastPrune  time.Time

	now func() time.Time
}

// NewDeviceService creates a service for d.
func NewDeviceService(d *device.Device, config Config) *DeviceService {
	svc := &DeviceService{
		config: config,
		device: d,
		now:    time.Now,
	}
	svc.cov = cov.NewManager(d, d.ID(), config.COV)
	svc.cov.OnNotification(svc.deliverNotification)
	svc.cov.OnChange(svc.recordChange)
	return svc
}

// Device returns the underlying device.
func (s *DeviceService) Device() *device.Device {
	return s.device
}

// COV returns the subscription manager.
func (s *DeviceService) COV() *cov.Manager {
	return s.cov
}

// SetSender sets where responses and notifications are sent.
func (s *DeviceService) SetSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// SetLogger sets the debug logger.
func (s *DeviceService) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetProtocolLogger sets the protocol event logger.
func (s *DeviceService) SetProtocolLogger(logger log.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocolLogger = logger
}

// SetStateStore sets the store used by SaveState and LoadState.
func (s *DeviceService) SetStateStore(store *persistence.DeviceStateStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateStore = store
}

// SetHistoryStore sets the store that records value changes.
func (s *DeviceService) SetHistoryStore(store *persistence.HistoryStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = store
}

// OnEvent registers an event handler.
func (s *DeviceService) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventHandlers = append(s.eventHandlers, handler)
}

// Serve starts a transport server wired to the service and makes it the
// sender. Connections are served until ctx is cancelled or the server is
// stopped.
func (s *DeviceService) Serve(ctx context.Context, cfg transport.ServerConfig) (*transport.Server, error) {
	if cfg.Logger == nil {
		s.mu.RLock()
		cfg.Logger = s.protocolLogger
		s.mu.RUnlock()
	}
	cfg.OnConnect = func(conn *transport.ServerConn) {
		s.HandleConnect(conn.ID())
	}
	cfg.OnDisconnect = func(conn *transport.ServerConn) {
		s.HandleDisconnect(conn.ID())
	}
	cfg.OnMessage = func(conn *transport.ServerConn, msg []byte) {
		s.HandleMessage(conn.ID(), msg)
	}
	cfg.OnError = func(conn *transport.ServerConn, err error) {
		s.debugLog("connection error", "conn", conn.ID(), "error", err)
	}

	server := transport.NewServer(cfg)
	if err := server.Start(ctx); err != nil {
		return nil, err
	}
	s.SetSender(server)
	return server, nil
}

// Run polls for changes at the COV poll interval until ctx is cancelled.
func (s *DeviceService) Run(ctx context.Context) {
	interval := s.config.COV.PollInterval
	if interval <= 0 {
		interval = cov.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll()
		}
	}
}

// Poll runs one round of housekeeping: it expires communication control,
// delivers pending COV notifications and prunes history. It returns the
// number of notifications produced.
func (s *DeviceService) Poll() int {
	now := s.now()
	s.CommunicationState()
	n := s.cov.Poll(now)
	s.pruneHistory(now)
	return n
}

// HandleConnect records a new client connection.
func (s *DeviceService) HandleConnect(connID string) {
	s.debugLog("client connected", "conn", connID)
	s.emitEvent(Event{Type: EventConnected, ConnID: connID, Timestamp: s.now()})
}

// HandleDisconnect drops the subscriptions of a closed connection.
func (s *DeviceService) HandleDisconnect(connID string) {
	n := s.cov.CancelSubscriber(connID)
	s.debugLog("client disconnected", "conn", connID, "subscriptions", n)
	s.emitEvent(Event{Type: EventDisconnected, ConnID: connID, Timestamp: s.now()})
}

// HandleMessage decodes one request frame, serves it and sends the
// response, if any, back on the same connection.
func (s *DeviceService) HandleMessage(connID string, data []byte) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		s.debugLog("dropping malformed request", "conn", connID, "error", err)
		s.logError(connID, log.LayerWire, err, "decode request")
		return
	}
	s.logMessage(connID, log.DirectionIn, log.RequestEvent(req))

	start := s.now()
	resp := s.HandleRequest(connID, req)
	if resp == nil {
		return
	}
	s.logMessage(connID, log.DirectionOut, log.ResponseEvent(resp, s.now().Sub(start)))

	out, err := wire.EncodeResponse(resp)
	if err != nil {
		s.logError(connID, log.LayerWire, err, "encode response")
		return
	}
	if err := s.send(connID, out); err != nil {
		s.debugLog("failed to send response", "conn", connID, "error", err)
	}
}

func (s *DeviceService) send(connID string, data []byte) error {
	s.mu.RLock()
	sender := s.sender
	s.mu.RUnlock()
	if sender == nil {
		return ErrNoSender
	}
	return sender.Send(connID, data)
}

func (s *DeviceService) broadcast(data []byte) int {
	s.mu.RLock()
	sender := s.sender
	s.mu.RUnlock()
	if sender == nil {
		return 0
	}
	return sender.Broadcast(data)
}

// deliverNotification sends a COV notification to its subscriber. Local
// subscribers only see the event.
func (s *DeviceService) deliverNotification(n cov.Notification) {
	if s.CommunicationState() != bacnet.CommunicationEnable {
		s.debugLog("notification suppressed", "object", n.Object, "subscriber", n.Subscriber)
		return
	}

	s.emitEvent(Event{
		Type:       EventNotification,
		Object:     n.Object,
		Values:     n.Values,
		Subscriber: n.Subscriber,
		ProcessID:  n.ProcessID,
		Timestamp:  n.Timestamp,
	})
	if IsLocal(n.Subscriber) {
		return
	}

	values, err := wire.EncodeValues(n.Values)
	if err != nil {
		s.logError(n.Subscriber, log.LayerWire, err, "encode notification values")
		return
	}
	notif := &wire.Notification{
		ProcessID:     n.ProcessID,
		Device:        n.Device,
		Object:        n.Object,
		TimeRemaining: n.TimeRemaining,
		Confirmed:     n.Confirmed,
		Values:        values,
	}
	data, err := wire.EncodeNotification(notif)
	if err != nil {
		s.logError(n.Subscriber, log.LayerWire, err, "encode notification")
		return
	}
	s.logMessage(n.Subscriber, log.DirectionOut, log.NotificationEvent(notif))
	if err := s.send(n.Subscriber, data); err != nil {
		s.debugLog("failed to send notification", "subscriber", n.Subscriber, "error", err)
	}
}

// emitEvent sends an event to all registered handlers.
func (s *DeviceService) emitEvent(event Event) {
	s.mu.RLock()
	handlers := s.eventHandlers
	s.mu.RUnlock()
	for _, handler := range handlers {
		go handler(event)
	}
}

// debugLog logs a debug message if logging is enabled.
func (s *DeviceService) debugLog(msg string, args ...any) {
	s.mu.RLock()
	logger := s.logger
	s.mu.RUnlock()
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

func (s *DeviceService) protoLog() log.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocolLogger
}

func (s *DeviceService) logMessage(connID string, dir log.Direction, msg *log.MessageEvent) {
	logger := s.protoLog()
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:      s.now(),
		ConnectionID:   connID,
		Direction:      dir,
		Layer:          log.LayerService,
		Category:       log.CategoryMessage,
		DeviceInstance: s.device.ID().Instance,
		Message:        msg,
	})
}

func (s *DeviceService) logError(connID string, layer log.Layer, err error, op string) {
	logger := s.protoLog()
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:      s.now(),
		ConnectionID:   connID,
		Direction:      log.DirectionIn,
		Layer:          layer,
		Category:       log.CategoryError,
		DeviceInstance: s.device.ID().Instance,
		Error:          log.NewErrorEvent(layer, err, op),
	})
}

func (s *DeviceService) logState(entity log.StateEntity, from, to, reason string) {
	logger := s.protoLog()
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:      s.now(),
		Layer:          log.LayerService,
		Category:       log.CategoryState,
		DeviceInstance: s.device.ID().Instance,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}

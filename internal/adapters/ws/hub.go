package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/correlate"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/keys"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/sessions"
	"github.com/lcalzada-xor/cellwatch/internal/telemetry"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Device agents are not browsers; there is no Origin to check.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ThreatSink receives accepted threat reports for persistence.
type ThreatSink interface {
	Enqueue(t domain.Threat)
}

type client struct {
	conn     *websocket.Conn
	deviceID string
	writeMu  sync.Mutex
}

func (c *client) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns the coordinator side of every device connection: the
// registration gate, the per-session message loop, and alert fan-out.
type Hub struct {
	keySvc   ports.KeyService
	registry *sessions.Registry
	engine   *correlate.Engine
	sink     ThreatSink
	store    ports.Storage
	stats    func() domain.CoordinatorStats
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]bool
}

func NewHub(keySvc ports.KeyService, registry *sessions.Registry, engine *correlate.Engine, sink ThreatSink, store ports.Storage, stats func() domain.CoordinatorStats, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		keySvc:   keySvc,
		registry: registry,
		engine:   engine,
		sink:     sink,
		store:    store,
		stats:    stats,
		logger:   logger,
		clients:  make(map[*client]bool),
	}
}

// HandleWebSocket upgrades the connection and runs the session until the
// device disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	defer conn.Close()

	if !h.register(r.Context(), c) {
		return
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.logger.Info("device connected", "device_id", c.deviceID)
	h.logEvent(c.deviceID, "device_registered", "")

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		h.registry.Disconnect(c.deviceID)
		h.logEvent(c.deviceID, "device_disconnected", "")
		h.logger.Info("device disconnected", "device_id", c.deviceID)
	}()

	h.readLoop(c)
}

// register runs the registration gate. A rejected attempt gets an error
// reply and the connection stays on the gate, so the device can re-register
// with a corrected key; only a transport failure ends the session.
func (h *Hub) register(ctx context.Context, c *client) bool {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return false
		}

		var reg RegisterDevice
		if err := json.Unmarshal(raw, &reg); err != nil || reg.Type != MsgRegisterDevice {
			c.send(ErrorMessage{Type: MsgError, Message: "registration required"})
			continue
		}
		if reg.DeviceID == "" {
			c.send(ErrorMessage{Type: MsgError, Message: "device_id is required"})
			continue
		}

		if _, err := h.keySvc.VerifyKey(ctx, reg.APIKey); err != nil {
			if !errors.Is(err, keys.ErrUnknownKey) {
				h.logger.Error("key verification failed", "error", err)
			}
			c.send(ErrorMessage{Type: MsgError, Message: "invalid registration key"})
			h.logEvent(reg.DeviceID, "registration_rejected", "invalid key")
			continue
		}

		c.deviceID = reg.DeviceID
		h.registry.Register(reg.DeviceID, reg.DeviceName, reg.DeviceType, reg.AppVersion)

		c.send(RegistrationSuccess{
			Type:       MsgRegistrationSuccess,
			DeviceID:   reg.DeviceID,
			Message:    "device registered",
			ServerTime: time.Now().UTC(),
		})
		return true
	}
}

func (h *Hub) readLoop(c *client) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// Undecodable frames are discarded; the session continues.
			h.logger.Debug("discarding undecodable frame", "device_id", c.deviceID)
			continue
		}

		switch env.Type {
		case MsgHeartbeat:
			h.registry.Heartbeat(c.deviceID)
			c.send(HeartbeatAck{Type: MsgHeartbeatAck, Timestamp: time.Now().UTC()})

		case MsgCellularThreat:
			var msg CellularThreat
			if err := json.Unmarshal(raw, &msg); err != nil {
				c.send(ErrorMessage{Type: MsgError, Message: "malformed threat report"})
				continue
			}
			h.handleThreat(c, msg.Threat)

		case MsgGetStatus:
			if h.stats != nil {
				c.send(StatusResponse{
					Type:    MsgStatusResponse,
					Stats:   h.stats(),
					Devices: h.registry.All(),
				})
			}

		default:
			// Unknown types get an error reply but never end the session.
			c.send(ErrorMessage{Type: MsgError, Message: "unknown message type: " + env.Type})
		}
	}
}

func (h *Hub) handleThreat(c *client, threat domain.Threat) {
	if threat.DeviceID == "" {
		threat.DeviceID = c.deviceID
	}
	if threat.ID == "" {
		threat.ID = uuid.New().String()
	}
	if threat.Timestamp.IsZero() {
		threat.Timestamp = time.Now().UTC()
	}

	telemetry.ThreatsReceived.WithLabelValues(string(threat.Type), string(threat.Severity)).Inc()
	h.registry.RecordThreat(c.deviceID)
	if h.sink != nil {
		h.sink.Enqueue(threat)
	}

	c.send(ThreatAcknowledged{Type: MsgThreatAcknowledged, ThreatID: threat.ID})

	h.logger.Warn("threat reported",
		"device_id", threat.DeviceID,
		"threat_type", threat.Type,
		"severity", threat.Severity)

	if threat.Severity.Rank() >= domain.SeverityHigh.Rank() {
		h.Broadcast(HighPriorityAlert{Type: MsgHighPriorityAlert, Threat: threat})
		h.logEvent(threat.DeviceID, "high_priority_alert", string(threat.Type))
	}

	if h.engine != nil {
		if alert := h.engine.Observe(threat); alert != nil {
			telemetry.CoordinatedAttacks.Inc()
			h.logger.Error("coordinated attack detected",
				"device_count", alert.DeviceCount,
				"threat_type", alert.ThreatType)
			h.logEvent("", "coordinated_attack", alert.Message)
			h.Broadcast(CoordinatedAttack{Type: MsgCoordinatedAttack, Alert: *alert})
		}
	}
}

// Broadcast sends a message to every connected device. Dead connections
// are dropped on write failure.
func (h *Hub) Broadcast(v any) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.send(v); err != nil {
			c.conn.Close()
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
		}
	}
}

// ConnectedCount returns the number of live connections.
func (h *Hub) ConnectedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) logEvent(deviceID, eventType, details string) {
	if h.store == nil {
		return
	}
	event := domain.MonitoringEvent{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		EventType: eventType,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	if err := h.store.SaveEvent(event); err != nil {
		h.logger.Error("failed to persist event", "event_type", eventType, "error", err)
	}
}

package coordination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lcalzada-xor/cellwatch/internal/adapters/ws"
	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
)

// State is the connection lifecycle of the client.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateRegistering  State = "registering"
	StateActive       State = "active"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	dialTimeout              = 10 * time.Second
	registerTimeout          = 10 * time.Second
)

var (
	ErrRegistrationRejected = errors.New("registration rejected by coordinator")
	ErrNotConnected         = errors.New("not connected to coordinator")
)

// DeviceInfo identifies this device to the coordinator.
type DeviceInfo struct {
	ID         string
	Name       string
	Type       string
	AppVersion string
	APIKey     string
}

// Client maintains the device's link to the coordinator. Threat reports are
// forwarded only while the session is active; anything reported while the
// link is down is dropped silently so detection never stalls on networking.
//
// The client never reconnects on its own. When the link drops it returns to
// StateDisconnected and the caller decides when to dial again.
type Client struct {
	url       string
	info      DeviceInfo
	heartbeat time.Duration
	alerts    ports.AlertSink
	logger    *slog.Logger

	mu    sync.RWMutex
	state State
	conn  *websocket.Conn

	writeMu sync.Mutex
}

var _ ports.ThreatReporter = (*Client)(nil)

func NewClient(url string, info DeviceInfo, heartbeat time.Duration, alerts ports.AlertSink, logger *slog.Logger) *Client {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:       url,
		info:      info,
		heartbeat: heartbeat,
		alerts:    alerts,
		logger:    logger,
		state:     StateDisconnected,
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Connect dials the coordinator and completes registration. On success the
// client is Active. A transport failure returns the client to Disconnected;
// a registration rejection keeps the socket open and leaves the client
// Registering so the caller can surface the message, correct the key and
// re-register on the same connection.
func (c *Client) Connect(ctx context.Context) error {
	switch c.State() {
	case StateDisconnected, StateRegistering:
	default:
		return fmt.Errorf("connect from state %s", c.State())
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		c.setState(StateConnecting)

		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		dialed, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
		if err != nil {
			c.setState(StateDisconnected)
			return fmt.Errorf("failed to dial coordinator: %w", err)
		}
		conn = dialed

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
	}

	c.setState(StateRegistering)

	if err := c.registerConn(conn); err != nil {
		if errors.Is(err, ErrRegistrationRejected) {
			return err
		}
		c.teardown()
		return err
	}

	c.setState(StateActive)

	c.logger.Info("registered with coordinator", "device_id", c.info.ID)
	return nil
}

// SetAPIKey replaces the key presented at registration. Useful after a
// rejection, before retrying Connect on the open socket.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	c.info.APIKey = key
	c.mu.Unlock()
}

func (c *Client) registerConn(conn *websocket.Conn) error {
	c.mu.RLock()
	apiKey := c.info.APIKey
	c.mu.RUnlock()

	reg := ws.RegisterDevice{
		Type:       ws.MsgRegisterDevice,
		DeviceID:   c.info.ID,
		DeviceName: c.info.Name,
		DeviceType: c.info.Type,
		AppVersion: c.info.AppVersion,
		APIKey:     apiKey,
		Timestamp:  time.Now().UTC(),
	}
	if err := conn.WriteJSON(reg); err != nil {
		return fmt.Errorf("failed to send registration: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(registerTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read registration reply: %w", err)
	}

	var env ws.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed registration reply: %w", err)
	}

	switch env.Type {
	case ws.MsgRegistrationSuccess:
		return nil
	case ws.MsgError:
		var msg ws.ErrorMessage
		_ = json.Unmarshal(raw, &msg)
		return fmt.Errorf("%w: %s", ErrRegistrationRejected, msg.Message)
	default:
		return fmt.Errorf("unexpected registration reply type %q", env.Type)
	}
}

// Run drives the heartbeat ticker and read pump until the context is
// cancelled or the link drops. It always leaves the client Disconnected.
func (c *Client) Run(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	defer c.teardown()

	readErr := make(chan error, 1)
	go func() { readErr <- c.readPump(conn) }()

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			hb := ws.Heartbeat{
				Type:      ws.MsgHeartbeat,
				DeviceID:  c.info.ID,
				Timestamp: time.Now().UTC(),
			}
			if err := c.write(hb); err != nil {
				return fmt.Errorf("heartbeat failed: %w", err)
			}
		}
	}
}

func (c *Client) readPump(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env ws.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		switch env.Type {
		case ws.MsgHeartbeatAck:
			// Liveness only, no state change.

		case ws.MsgThreatAcknowledged:
			var msg ws.ThreatAcknowledged
			_ = json.Unmarshal(raw, &msg)
			c.logger.Debug("threat acknowledged", "threat_id", msg.ThreatID)

		case ws.MsgStatusResponse:
			var msg ws.StatusResponse
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			c.logger.Info("coordinator status",
				"connected_devices", msg.Stats.ConnectedDevices,
				"threats_24h", msg.Stats.Threats24h)

		case ws.MsgHighPriorityAlert:
			var msg ws.HighPriorityAlert
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			c.logger.Warn("high priority alert from coordinator",
				"threat_type", msg.Threat.Type,
				"reported_by", msg.Threat.DeviceID)
			if c.alerts != nil {
				c.alerts.HighPriorityAlert(msg.Threat)
			}

		case ws.MsgCoordinatedAttack:
			var msg ws.CoordinatedAttack
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			c.logger.Error("coordinated attack alert from coordinator",
				"device_count", msg.Alert.DeviceCount)
			if c.alerts != nil {
				c.alerts.CoordinatedAttack(msg.Alert)
			}

		case ws.MsgError:
			var msg ws.ErrorMessage
			_ = json.Unmarshal(raw, &msg)
			c.logger.Warn("error from coordinator", "message", msg.Message)

		default:
			c.logger.Debug("ignoring unknown message", "type", env.Type)
		}
	}
}

// ReportThreat forwards a threat to the coordinator. Reports made while the
// session is not active are dropped.
func (c *Client) ReportThreat(threat domain.Threat) {
	c.mu.RLock()
	active := c.state == StateActive
	c.mu.RUnlock()
	if !active {
		c.logger.Debug("dropping threat report, link down", "threat_id", threat.ID)
		return
	}

	msg := ws.CellularThreat{Type: ws.MsgCellularThreat, Threat: threat}
	if err := c.write(msg); err != nil {
		c.logger.Warn("failed to report threat", "threat_id", threat.ID, "error", err)
	}
}

// RequestStatus asks the coordinator for its status; the reply arrives on
// the read pump.
func (c *Client) RequestStatus() error {
	if c.State() != StateActive {
		return ErrNotConnected
	}
	return c.write(ws.GetStatus{Type: ws.MsgGetStatus})
}

func (c *Client) write(v any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(v)
}

func (c *Client) teardown() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
	c.mu.Unlock()
}

package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/config"
)

// Client owns the process's single broker connection.
//
// Every inbound message, whichever filter it matched, goes to one
// MessageHandler. The filter set is re-subscribed in a single batch on
// every (re)connect. Reconnecting itself is left to paho.
//
// All methods are safe for concurrent use. Publishes from many goroutines
// share the connection; paho serialises the wire writes.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	filters map[string]byte
	handler MessageHandler
	subMu   sync.RWMutex

	connected bool
	connMu    sync.RWMutex

	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler receives every inbound message. paho calls it from a
// single goroutine in arrival order, so it must hand work off quickly.
type MessageHandler func(topic string, payload []byte)

// Connect dials the broker described by cfg and waits for the first
// CONNACK. A retained "online" status is published on every connect and
// the broker publishes the "offline" will if the process dies.
//
// After the first connect paho reconnects on its own with the backoff from
// cfg.Reconnect; subscriptions made through Subscribe are restored on each
// reconnect.
//
// Parameters:
//   - cfg: Broker address, credentials, QoS and reconnect settings
//
// Returns:
//   - *Client: Connected client, ready for Subscribe and Publish
//   - error: ErrConnectionFailed if the broker is unreachable or refuses
//     the connection within the connect timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := newClient(cfg, nil)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("mqtt reconnecting", "broker", brokerURL(cfg))
		}
	})

	c.client = pahomqtt.NewClient(opts)
	if err := c.dial(defaultConnectTimeout); err != nil {
		return nil, err
	}
	return c, nil
}

// dial waits up to timeout for the first CONNACK. On failure the paho
// client is disconnected so its connect-retry loop does not keep running
// behind a Client nobody holds.
func (c *Client) dial(timeout time.Duration) error {
	token := c.client.Connect()
	if !token.WaitTimeout(timeout) {
		c.client.Disconnect(0)
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, timeout)
	}
	if err := token.Error(); err != nil {
		c.client.Disconnect(0)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect callback runs asynchronously and may not have fired yet.
	c.setConnected(true)
	return nil
}

// newClient builds a Client around an existing paho client. Connect uses it
// with a real client; tests pass a fake.
func newClient(cfg config.MQTTConfig, pc pahomqtt.Client) *Client {
	return &Client{
		client:  pc,
		cfg:     cfg,
		filters: make(map[string]byte),
	}
}

func (c *Client) handleConnect() {
	c.setConnected(true)

	if err := c.restoreSubscriptions(); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Error("restoring mqtt subscriptions failed", "error", err)
		}
	}

	c.publishStatus(buildOnlinePayload(c.cfg.Broker.ClientID))

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-issues the whole filter set as one SUBSCRIBE.
func (c *Client) restoreSubscriptions() error {
	c.subMu.RLock()
	filters := copyFilters(c.filters)
	c.subMu.RUnlock()

	if len(filters) == 0 {
		return nil
	}
	return waitToken(c.client.SubscribeMultiple(filters, c.onMessage), ErrSubscribeFailed)
}

func (c *Client) publishStatus(payload string) pahomqtt.Token {
	return c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close unsubscribes every filter, publishes a graceful offline status and
// disconnects. Handlers still running are not waited for.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		if err := c.Unsubscribe(); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("mqtt unsubscribe on close failed", "error", err)
			}
		}
		c.publishStatus(buildOfflinePayload(c.cfg.Broker.ClientID)).WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)

	return nil
}

// HealthCheck reports ErrNotConnected while the connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// SetOnConnect sets a callback run after every successful (re)connect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets the logger used for transport errors and handler panics.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// onMessage is the single paho callback for all subscriptions.
func (c *Client) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.subMu.RLock()
	handler := c.handler
	c.subMu.RUnlock()
	if handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("mqtt message handler panic recovered",
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}
	}()

	handler(msg.Topic(), msg.Payload())
}

func copyFilters(in map[string]byte) map[string]byte {
	out := make(map[string]byte, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

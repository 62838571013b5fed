package mqtt

import (
	"fmt"
	"sort"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscribe replaces the client's filter set with filters and routes every
// matching message to handler. The filters are sent as one SUBSCRIBE and
// are re-sent together after each reconnect.
//
// Example:
//
//	err := client.Subscribe(router.Patterns(), 1, router.Deliver)
func (c *Client) Subscribe(filters []string, qos byte, handler MessageHandler) error {
	if len(filters) == 0 {
		return fmt.Errorf("%w: no filters", ErrSubscribeFailed)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	set := make(map[string]byte, len(filters))
	for _, f := range filters {
		if f == "" {
			return fmt.Errorf("%w: empty filter", ErrInvalidTopic)
		}
		set[f] = qos
	}

	c.subMu.Lock()
	c.filters = set
	c.handler = handler
	c.subMu.Unlock()

	if !c.IsConnected() {
		// Applied by handleConnect once the connection comes up.
		return ErrNotConnected
	}

	return waitToken(c.client.SubscribeMultiple(copyFilters(set), c.onMessage), ErrSubscribeFailed)
}

// Unsubscribe drops every tracked filter from the broker and forgets them.
func (c *Client) Unsubscribe() error {
	filters := c.Filters()

	c.subMu.Lock()
	c.filters = make(map[string]byte)
	c.subMu.Unlock()

	if len(filters) == 0 {
		return nil
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return waitToken(c.client.Unsubscribe(filters...), ErrUnsubscribeFailed)
}

// Filters returns the tracked subscription filters, sorted.
func (c *Client) Filters() []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	out := make([]string, 0, len(c.filters))
	for f := range c.filters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func waitToken(token pahomqtt.Token, kind error) error {
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %w after %v", kind, ErrTimeout, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return nil
}

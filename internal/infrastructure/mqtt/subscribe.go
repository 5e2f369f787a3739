package mqtt

import "fmt"

// Subscribe routes messages matching topic to h. The filter may use "+"
// and "#". A second Subscribe on the same filter replaces the handler;
// sharing a filter between consumers is done by the caller.
// Routes survive a reconnect.
func (c *Client) Subscribe(topic string, qos byte, h MessageHandler) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%w: %s: nil handler", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.routesMu.Lock()
	c.routes[topic] = route{qos: qos, handler: h}
	c.routesMu.Unlock()

	if err := await(c.paho.Subscribe(topic, qos, c.dispatch(h)), ErrSubscribeFailed); err != nil {
		c.drop(topic)
		return err
	}
	return nil
}

// Unsubscribe removes the route for topic. A message already handed to
// paho can still reach the old handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.drop(topic)
	return await(c.paho.Unsubscribe(topic), ErrUnsubscribeFailed)
}

func (c *Client) drop(topic string) {
	c.routesMu.Lock()
	delete(c.routes, topic)
	c.routesMu.Unlock()
}

// SubscriptionCount returns the number of routed filters.
func (c *Client) SubscriptionCount() int {
	c.routesMu.RLock()
	defer c.routesMu.RUnlock()
	return len(c.routes)
}

// HasSubscription reports whether filter topic is routed.
func (c *Client) HasSubscription(topic string) bool {
	c.routesMu.RLock()
	defer c.routesMu.RUnlock()
	_, ok := c.routes[topic]
	return ok
}

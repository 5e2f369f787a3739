//go:build integration

package mqtt

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
)

// Integration tests against a live broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:           "127.0.0.1",
			Port:           1883,
			ClientID:       clientID,
			ConnectTimeout: 5,
		},
		QoS: 1,
	}
}

func TestIntegration_ConnectAndClose(t *testing.T) {
	client, err := Connect(integrationConfig("fimp2ha-int-connect"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig("fimp2ha-int-sub-track"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := []string{
		"fimp2ha/int/test/topic1",
		"fimp2ha/int/test/topic2",
		"fimp2ha/int/test/+/wildcard",
	}
	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, func(string, []byte) error { return nil }); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	if got := client.SubscriptionCount(); got != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", got, len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Error("HasSubscription() = true after Unsubscribe")
	}
}

func TestIntegration_MessageRoundtrip(t *testing.T) {
	client, err := Connect(integrationConfig("fimp2ha-int-roundtrip"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topic := fmt.Sprintf("fimp2ha/int/roundtrip/%d", time.Now().UnixNano())
	received := make(chan []byte, 1)

	err = client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- payload
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.PublishJSON(topic, map[string]any{"type": "evt.max_current.report", "val": 32}, 1, false); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != `{"type":"evt.max_current.report","val":32}` {
			t.Errorf("payload = %s", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestIntegration_WildcardDelivery(t *testing.T) {
	client, err := Connect(integrationConfig("fimp2ha-int-wildcard"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	base := fmt.Sprintf("fimp2ha/int/wild/%d", time.Now().UnixNano())
	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 2)

	err = client.Subscribe(base+"/#", 1, func(topic string, _ []byte) error {
		mu.Lock()
		got = append(got, topic)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for _, suffix := range []string{"/a", "/b/c"} {
		if err := client.Publish(base+suffix, []byte("x"), 1, false); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	for range 2 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for wildcard delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, topic := range got {
		if !TopicMatches(base+"/#", topic) {
			t.Errorf("delivered topic %q does not match filter", topic)
		}
	}
}

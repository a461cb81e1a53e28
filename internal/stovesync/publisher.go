package stovesync

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-hearth/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-hearth/internal/stove"
)

// Broker is the publishing side of the MQTT client.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Publisher sends stove state and cook events to the broker.
type Publisher struct {
	broker Broker
	qos    byte
}

// NewPublisher creates a publisher that sends at the given QoS.
func NewPublisher(broker Broker, qos byte) *Publisher {
	return &Publisher{broker: broker, qos: qos}
}

// Sync publishes p retained on its stove's sync topic.
func (p *Publisher) Sync(payload Payload) error {
	data, err := payload.Bytes()
	if err != nil {
		return fmt.Errorf("marshalling sync payload: %w", err)
	}
	if err := p.broker.Publish(mqtt.Topics{}.StoveSync(payload.ID), data, p.qos, true); err != nil {
		return fmt.Errorf("publishing sync for %s: %w", payload.ID, err)
	}
	return nil
}

// Remove clears the retained sync message of a removed stove.
func (p *Publisher) Remove(stoveID string) error {
	if err := p.broker.Publish(mqtt.Topics{}.StoveSync(stoveID), nil, p.qos, true); err != nil {
		return fmt.Errorf("clearing sync for %s: %w", stoveID, err)
	}
	return nil
}

// Event publishes a cook event, not retained.
func (p *Publisher) Event(ev stove.CookEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling cook event: %w", err)
	}
	if err := p.broker.Publish(mqtt.Topics{}.CoreEvent(string(ev.Kind)), data, p.qos, false); err != nil {
		return fmt.Errorf("publishing %s event for %s: %w", ev.Kind, ev.StoveID, err)
	}
	return nil
}

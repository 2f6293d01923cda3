// Package mqtt is an ipfix.Sink that publishes decoded records to an
// MQTT broker via eclipse/paho.mqtt.golang, for bridging flow records
// into an industrial/IoT-style pub-sub fabric alongside other telemetry.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowlens/ipfixcore"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// Sink publishes one retained-false MQTT message per decoded record, to
// a topic derived from TopicPrefix and the record's observation domain
// and template id, so a subscriber can filter with a single wildcard
// (e.g. "<prefix>/7/#" for everything from observation domain 7).
type Sink struct {
	client      paho.Client
	topicPrefix string
	qos         byte
}

var _ ipfix.Sink = (*Sink)(nil)

// New returns a Sink publishing through client under topicPrefix at
// the given QoS (0, 1, or 2).
func New(client paho.Client, topicPrefix string, qos byte) *Sink {
	return &Sink{client: client, topicPrefix: topicPrefix, qos: qos}
}

func (s *Sink) Accept(ctx context.Context, rec ipfix.Record) error {
	fields := make(map[string]any, len(rec.Data.Fields))
	for id, v := range rec.Data.Map() {
		fields[fmt.Sprintf("%d", id)] = v.Render()
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshaling record for mqtt: %w", err)
	}

	topic := fmt.Sprintf("%s/%d/%d", s.topicPrefix, rec.Template.Key.ObservationDomainId, rec.Template.Key.TemplateId)
	token := s.client.Publish(topic, s.qos, false, body)

	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()

	select {
	case <-done:
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const mqttPublishTimeout = 5 * time.Second

// MQTTPublisher publishes envelopes to <prefix>/tickets/<type>.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher connects to brokerURL with auto-reconnect enabled.
func NewMQTTPublisher(brokerURL, clientID, prefix string, logger *zap.Logger) (*MQTTPublisher, error) {
	if brokerURL == "" {
		return nil, errors.New("mqtt broker url is empty")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	}
	opts.OnConnect = func(_ mqtt.Client) {
		logger.Info("mqtt connected", zap.String("broker", brokerURL), zap.String("client_id", clientID))
	}

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return &MQTTPublisher{client: client, prefix: prefix}, nil
}

// Publish sends msg at QoS 1 to the topic derived from key.
func (p *MQTTPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	tok := p.client.Publish(MQTTTopic(p.prefix, key), 1, false, body)
	timeout := mqttPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !tok.WaitTimeout(timeout) {
		return errors.New("mqtt publish timed out")
	}
	return tok.Error()
}

// Close disconnects after flushing in-flight messages.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

// MQTTTopic maps a routing key such as ticket.status_changed to prefix/tickets/status_changed.
func MQTTTopic(prefix, key string) string {
	return strings.TrimSuffix(prefix, "/") + "/tickets/" + strings.TrimPrefix(key, "ticket.")
}

package sensor

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTSource получает RR-сэмплы из MQTT-топика. Payload сообщения — та же
// строка протокола датчика, что и в TCP-транспорте ("RR,993").
// Переподключением управляет сам paho-клиент (AutoReconnect).
type MQTTSource struct {
	brokerURL string
	topic     string
	clientID  string
	logger    *zap.Logger
}

// NewMQTTSource создает MQTT-источник RR-сэмплов
func NewMQTTSource(brokerURL, topic, clientID string, logger *zap.Logger) *MQTTSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTSource{
		brokerURL: brokerURL,
		topic:     topic,
		clientID:  clientID,
		logger:    logger,
	}
}

// Run подписывается на топик и отправляет сэмплы в out до отмены контекста
func (s *MQTTSource) Run(ctx context.Context, out chan<- Sample) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.brokerURL)
	opts.SetClientID(s.clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.logger.Info("mqtt connected", zap.String("broker", s.brokerURL))
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		s.logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	defer client.Disconnect(250)

	handler := func(c mqtt.Client, msg mqtt.Message) {
		payload := string(msg.Payload())
		for _, line := range strings.Split(payload, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			rr, err := ParseLine(line)
			if err != nil {
				s.logger.Debug("skipping non-RR payload", zap.String("raw", line))
				continue
			}
			sample := Sample{RRMS: rr, Raw: line, At: time.Now()}
			select {
			case out <- sample:
			case <-ctx.Done():
			}
		}
	}

	if token := client.Subscribe(s.topic, 1, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", s.topic, token.Error())
	}

	<-ctx.Done()

	if token := client.Unsubscribe(s.topic); token.Wait() && token.Error() != nil {
		s.logger.Warn("mqtt unsubscribe failed", zap.Error(token.Error()))
	}
	return nil
}

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/code-withabhi/safety-compass/internal/config"
	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/motion"
	"github.com/code-withabhi/safety-compass/internal/service"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// MQTTIngestor принимает замеры акселерометра и фиксы позиции от устройств
// по MQTT. Топики: safety/motion/{userID} и safety/position/{userID}.
type MQTTIngestor struct {
	cfg       *config.Config
	registry  *motion.Registry
	positions service.PositionService
	logger    *logrus.Logger
	client    mqtt.Client
}

func NewMQTTIngestor(cfg *config.Config, registry *motion.Registry, positions service.PositionService, logger *logrus.Logger) *MQTTIngestor {
	return &MQTTIngestor{
		cfg:       cfg,
		registry:  registry,
		positions: positions,
		logger:    logger,
	}
}

// Start подключается к брокеру и подписывается на топики устройств
func (i *MQTTIngestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(i.cfg.MQTTBroker)
	opts.SetClientID("safety-compass-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)

	opts.OnConnect = func(client mqtt.Client) {
		i.subscribe(client, i.cfg.MQTTMotionTopic, i.handleMotion)
		i.subscribe(client, i.cfg.MQTTPositionTopic, i.handlePosition)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.logger.WithError(err).Warn("MQTT connection lost")
	}

	i.client = mqtt.NewClient(opts)
	token := i.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	i.logger.WithField("broker", i.cfg.MQTTBroker).Info("MQTT ingestor connected")

	go func() {
		<-ctx.Done()
		i.client.Disconnect(250)
		i.logger.Info("MQTT ingestor disconnected")
	}()
	return nil
}

func (i *MQTTIngestor) subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler) {
	token := client.Subscribe(topic, 0, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		i.logger.WithError(err).Errorf("MQTT subscribe failed for topic %s", topic)
		return
	}
	i.logger.WithField("topic", topic).Info("MQTT ingestor subscribed")
}

// handleMotion прогоняет замер через детектор пользователя
func (i *MQTTIngestor) handleMotion(_ mqtt.Client, msg mqtt.Message) {
	userID := topicUserID(msg.Topic())
	if userID == "" {
		return
	}

	var sample models.AccelSample
	if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
		i.logger.WithError(err).Warn("Failed to unmarshal motion sample from MQTT")
		return
	}

	i.registry.Detector(userID).Process(sample)
}

// handlePosition обновляет кеш последней позиции пользователя
func (i *MQTTIngestor) handlePosition(_ mqtt.Client, msg mqtt.Message) {
	userID := topicUserID(msg.Topic())
	if userID == "" {
		return
	}

	var fix models.PositionFix
	if err := json.Unmarshal(msg.Payload(), &fix); err != nil {
		i.logger.WithError(err).Warn("Failed to unmarshal position fix from MQTT")
		return
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now()
	}

	if err := i.positions.Update(context.Background(), userID, &fix); err != nil {
		i.logger.WithError(err).Warn("Failed to store position fix from MQTT")
	}
}

// topicUserID извлекает идентификатор пользователя из последнего сегмента топика
func topicUserID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

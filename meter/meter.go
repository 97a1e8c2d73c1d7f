package meter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type OnStateMessage func(msg *StateMessage)

var topics = map[string]byte{
	"pstryk/meter/state": 0,
}

// Client subscribes to the local meter bridge over MQTT and forwards
// decoded state messages. A malformed payload is logged and dropped.
type Client struct {
	mqttClient      mqtt.Client
	logger          *slog.Logger
	lastMessageTime ConcurrentTimer
	stopMonitorCh   chan struct{}
	OnState         OnStateMessage
	OnInactivity    func()
}

func New(broker string, port int16, username string, password string) *Client {
	logger := slog.Default().With("module", "meter")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID("pstryk-go")
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("meter MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("meter MQTT connection lost", slog.Any("error", err))
	}

	mqttLogger := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)

	return &Client{
		mqttClient: mqtt.NewClient(opts),
		logger:     logger,
	}
}

func (m *Client) Connect() error {
	m.logger.Debug("connecting meter MQTT client")

	if token := m.mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	m.inactivityWatchdog()

	token := m.mqttClient.SubscribeMultiple(topics, func(client mqtt.Client, msg mqtt.Message) {
		m.lastMessageTime.Reset()

		switch msg.Topic() {
		case "pstryk/meter/state":
			var state StateMessage
			if err := json.Unmarshal(msg.Payload(), &state); err != nil {
				m.logger.Error("error when reading meter state message", slog.Any("error", err))
			} else if m.OnState != nil {
				m.OnState(&state)
			}

		default:
			m.logger.Warn("unknown topic", "topic", msg.Topic())
		}
	})

	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	return nil
}

func (m *Client) Disconnect() {
	m.logger.Info("disconnecting meter mqtt client")
	if m.stopMonitorCh != nil {
		close(m.stopMonitorCh)
		m.stopMonitorCh = nil
	}

	keys := make([]string, 0, len(topics))
	for k := range topics {
		keys = append(keys, k)
	}
	token := m.mqttClient.Unsubscribe(keys...)
	token.WaitTimeout(1 * time.Second)
	if token.Error() != nil {
		m.logger.Error("error unsubscribing from topics", slog.Any("error", token.Error()))
	}

	m.mqttClient.Disconnect(250)
}

func (m *Client) inactivityWatchdog() {
	trafficOk := true
	maxElapsed := 30 * time.Second
	deadTimeout := 5 * time.Minute
	m.lastMessageTime.Reset()
	m.stopMonitorCh = make(chan struct{})

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if m.lastMessageTime.Elapsed() >= deadTimeout {
					m.logger.Error(fmt.Sprintf("no incoming mqtt traffic for the last %.0f seconds", deadTimeout.Seconds()))
					if m.OnInactivity != nil {
						m.OnInactivity()
					}
					return
				}
				if m.lastMessageTime.Elapsed() >= maxElapsed {
					if trafficOk {
						m.logger.Warn(fmt.Sprintf("no incoming mqtt traffic for the last %.0f seconds", maxElapsed.Seconds()))
						trafficOk = false
					}
				} else {
					if !trafficOk {
						m.logger.Info("mqtt traffic is restored")
						trafficOk = true
					}
				}

			case <-m.stopMonitorCh:
				m.logger.Debug("stopping meter monitor routine")
				return
			}
		}
	}()
}

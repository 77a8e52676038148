package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ClientConfig параметры подключения к брокеру.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Client управляет соединением с брокером. Публикацией занимается Publisher.
type Client struct {
	client mqtt.Client
	logger *zap.Logger
}

// NewClient подключается к брокеру.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connection established", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		client.Disconnect(0)
		if token.Error() != nil {
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
		}
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timeout", cfg.Broker)
	}

	return &Client{client: client, logger: logger}, nil
}

// Native возвращает клиент paho для Publisher.
func (c *Client) Native() mqtt.Client {
	return c.client
}

// IsConnected сообщает о состоянии соединения.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close отключается от брокера.
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT client disconnected")
}

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/controller"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/observable"
	"github.com/markusressel/fancond/internal/ui"
)

const (
	publishTimeout = 5 * time.Second
	queueSize      = 16

	CommandEnable  = "enable"
	CommandDisable = "disable"
	CommandTest    = "test"
)

// Commander executes commands received via mqtt
type Commander interface {
	Enable(label string) error
	Disable(label string) error
	Test(label string, forced bool, blocking bool, progress *observable.Number) (*observable.Number, error)
}

// Publisher mirrors the controller state to an mqtt broker and accepts fan commands
type Publisher struct {
	client paho.Client
	config configuration.MqttConfig

	snapshots chan controller.StatusSnapshot
	documents chan devices.Document
}

func NewClient(config configuration.MqttConfig) paho.Client {
	opts := paho.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientId)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWill(stateTopic(config.TopicPrefix), "offline", byte(config.Qos), true)
	opts.SetOnConnectHandler(func(client paho.Client) {
		ui.Info("Connected to mqtt broker %s", config.Broker)
	})
	opts.SetConnectionLostHandler(func(client paho.Client, err error) {
		ui.Warning("Lost connection to mqtt broker %s: %v", config.Broker, err)
	})
	return paho.NewClient(opts)
}

func NewPublisher(client paho.Client, config configuration.MqttConfig) *Publisher {
	return &Publisher{
		client:    client,
		config:    config,
		snapshots: make(chan controller.StatusSnapshot, queueSize),
		documents: make(chan devices.Document, queueSize),
	}
}

func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout connecting to mqtt broker %s", p.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("unable to connect to mqtt broker %s: %w", p.config.Broker, err)
	}
	return nil
}

// OnStatus queues a snapshot for publishing. Snapshots are dropped while the queue is full.
func (p *Publisher) OnStatus(snapshot controller.StatusSnapshot) {
	select {
	case p.snapshots <- snapshot:
	default:
		ui.Debug("mqtt queue is full, dropping status snapshot")
	}
}

// OnDevices queues the device set for publishing
func (p *Publisher) OnDevices(doc devices.Document) {
	select {
	case p.documents <- doc:
	default:
		ui.Debug("mqtt queue is full, dropping device set")
	}
}

// Start publishes queued updates until ctx is cancelled
func (p *Publisher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.publish(stateTopic(p.config.TopicPrefix), true, "offline")
			p.client.Disconnect(250)
			return nil
		case snapshot := <-p.snapshots:
			p.PublishStatus(snapshot)
		case doc := <-p.documents:
			p.PublishDevices(doc)
		}
	}
}

// PublishStatus publishes the controller state and one message per fan and sensor
func (p *Publisher) PublishStatus(snapshot controller.StatusSnapshot) {
	prefix := p.config.TopicPrefix
	p.publish(stateTopic(prefix), true, snapshot.State)
	for _, fan := range snapshot.Fans {
		p.publishJson(fanTopic(prefix, fan.Label), false, fan)
	}
	for _, sensor := range snapshot.Sensors {
		p.publishJson(topic(prefix, "sensor", sensor.Label), false, sensor)
	}
}

func (p *Publisher) PublishDevices(doc devices.Document) {
	p.publishJson(topic(p.config.TopicPrefix, "devices"), true, doc)
}

func (p *Publisher) publishJson(topic string, retained bool, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		ui.Warning("Unable to encode mqtt message for %s: %v", topic, err)
		return
	}
	p.publish(topic, retained, payload)
}

func (p *Publisher) publish(topic string, retained bool, payload interface{}) {
	token := p.client.Publish(topic, byte(p.config.Qos), retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		ui.Warning("Timeout publishing mqtt message to %s", topic)
		return
	}
	if err := token.Error(); err != nil {
		ui.Warning("Unable to publish mqtt message to %s: %v", topic, err)
	}
}

// SubscribeCommands routes messages on <prefix>/fan/<label>/set to the given commander.
// Valid payloads are "enable", "disable", "test" and "test forced".
func (p *Publisher) SubscribeCommands(commander Commander) error {
	filter := topic(p.config.TopicPrefix, "fan", "+", "set")
	token := p.client.Subscribe(filter, byte(p.config.Qos), func(client paho.Client, message paho.Message) {
		label, ok := commandLabel(p.config.TopicPrefix, message.Topic())
		if !ok {
			return
		}
		if err := HandleCommand(commander, label, string(message.Payload())); err != nil {
			ui.Warning("mqtt command for fan %s failed: %v", label, err)
		}
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout subscribing to %s", filter)
	}
	return token.Error()
}

// HandleCommand executes a single command for the given fan
func HandleCommand(commander Commander, label string, payload string) error {
	fields := strings.Fields(strings.ToLower(payload))
	if len(fields) <= 0 {
		return fmt.Errorf("empty command")
	}
	switch fields[0] {
	case CommandEnable:
		return commander.Enable(label)
	case CommandDisable:
		return commander.Disable(label)
	case CommandTest:
		forced := len(fields) > 1 && fields[1] == "forced"
		_, err := commander.Test(label, forced, false, nil)
		return err
	default:
		return fmt.Errorf("unknown command %q", payload)
	}
}

func topic(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), "/")
}

func stateTopic(prefix string) string {
	return topic(prefix, "state")
}

func fanTopic(prefix string, label string) string {
	return topic(prefix, "fan", label)
}

// commandLabel extracts the fan label from a command topic
func commandLabel(prefix string, messageTopic string) (string, bool) {
	rest, ok := strings.CutPrefix(messageTopic, prefix+"/fan/")
	if !ok {
		return "", false
	}
	label, ok := strings.CutSuffix(rest, "/set")
	if !ok || len(label) <= 0 || strings.Contains(label, "/") {
		return "", false
	}
	return label, true
}

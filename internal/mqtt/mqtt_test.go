package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/controller"
	"github.com/markusressel/fancond/internal/observable"
	"github.com/stretchr/testify/assert"
)

// doneToken is a token of an operation that already completed
type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool {
	return true
}

func (t *doneToken) WaitTimeout(time.Duration) bool {
	return true
}

func (t *doneToken) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

func (t *doneToken) Error() error {
	return t.err
}

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakeClient struct {
	paho.Client

	mu           sync.Mutex
	messages     []message
	handler      paho.MessageHandler
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var text string
	switch value := payload.(type) {
	case string:
		text = value
	case []byte:
		text = string(value)
	}
	c.messages = append(c.messages, message{topic: topic, retained: retained, payload: text})
	return &doneToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.handler = callback
	return &doneToken{}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) Messages() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message{}, c.messages...)
}

type fakeMessage struct {
	paho.Message
	topic   string
	payload string
}

func (m fakeMessage) Topic() string {
	return m.topic
}

func (m fakeMessage) Payload() []byte {
	return []byte(m.payload)
}

type fakeCommander struct {
	calls []string
}

func (c *fakeCommander) Enable(label string) error {
	c.calls = append(c.calls, "enable "+label)
	return nil
}

func (c *fakeCommander) Disable(label string) error {
	c.calls = append(c.calls, "disable "+label)
	return nil
}

func (c *fakeCommander) Test(label string, forced bool, blocking bool, progress *observable.Number) (*observable.Number, error) {
	if forced {
		c.calls = append(c.calls, "test forced "+label)
	} else {
		c.calls = append(c.calls, "test "+label)
	}
	return observable.NewNumber(0), nil
}

var testConfig = configuration.MqttConfig{TopicPrefix: "fancond", Qos: 1}

func TestPublisher_PublishStatus(t *testing.T) {
	// GIVEN
	client := &fakeClient{}
	publisher := NewPublisher(client, testConfig)
	snapshot := controller.StatusSnapshot{
		State:   "Running",
		Fans:    []controller.FanStatus{{Label: "cpu_fan", Status: controller.StatusEnabled}},
		Sensors: []controller.SensorStatus{{Label: "cpu", Value: 40}},
	}

	// WHEN
	publisher.PublishStatus(snapshot)

	// THEN
	messages := client.Messages()
	assert.Len(t, messages, 3)
	assert.Equal(t, message{topic: "fancond/state", retained: true, payload: "Running"}, messages[0])
	assert.Equal(t, "fancond/fan/cpu_fan", messages[1].topic)
	assert.Contains(t, messages[1].payload, `"status":"enabled"`)
	assert.Equal(t, "fancond/sensor/cpu", messages[2].topic)
}

func TestPublisher_Start(t *testing.T) {
	// GIVEN
	client := &fakeClient{}
	publisher := NewPublisher(client, testConfig)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- publisher.Start(ctx)
	}()

	// WHEN
	publisher.OnStatus(controller.StatusSnapshot{State: "Running"})

	// THEN
	assert.Eventually(t, func() bool {
		return len(client.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	// WHEN
	cancel()

	// THEN
	assert.NoError(t, <-done)
	messages := client.Messages()
	assert.Equal(t, "offline", messages[len(messages)-1].payload)
	assert.True(t, client.disconnected)
}

func TestPublisher_SubscribeCommands(t *testing.T) {
	// GIVEN
	client := &fakeClient{}
	publisher := NewPublisher(client, testConfig)
	commander := &fakeCommander{}
	assert.NoError(t, publisher.SubscribeCommands(commander))

	// WHEN
	client.handler(client, fakeMessage{topic: "fancond/fan/cpu_fan/set", payload: "enable"})
	client.handler(client, fakeMessage{topic: "fancond/fan/cpu_fan/set", payload: "Test Forced"})
	client.handler(client, fakeMessage{topic: "other/fan/cpu_fan/set", payload: "disable"})

	// THEN
	assert.Equal(t, []string{"enable cpu_fan", "test forced cpu_fan"}, commander.calls)
}

func TestHandleCommand_Invalid(t *testing.T) {
	// GIVEN
	commander := &fakeCommander{}

	// WHEN
	emptyErr := HandleCommand(commander, "cpu_fan", " ")
	unknownErr := HandleCommand(commander, "cpu_fan", "explode")

	// THEN
	assert.Error(t, emptyErr)
	assert.Error(t, unknownErr)
	assert.Empty(t, commander.calls)
}

func TestCommandLabel(t *testing.T) {
	tests := []struct {
		topic string
		label string
		ok    bool
	}{
		{"fancond/fan/cpu_fan/set", "cpu_fan", true},
		{"fancond/fan/set", "", false},
		{"fancond/fan/a/b/set", "", false},
		{"fancond/sensor/cpu/set", "", false},
	}
	for _, test := range tests {
		label, ok := commandLabel("fancond", test.topic)
		assert.Equal(t, test.ok, ok, test.topic)
		assert.Equal(t, test.label, label, test.topic)
	}
}

func TestPublisher_Connect_Error(t *testing.T) {
	// GIVEN
	client := &failingClient{err: errors.New("connection refused")}
	publisher := NewPublisher(client, testConfig)

	// WHEN
	err := publisher.Connect()

	// THEN
	assert.ErrorContains(t, err, "connection refused")
}

type failingClient struct {
	paho.Client
	err error
}

func (c *failingClient) Connect() paho.Token {
	return &doneToken{err: c.err}
}


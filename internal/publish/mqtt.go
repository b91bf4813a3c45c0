// Package publish mirrors the published forecast state to an MQTT topic as
// a retained JSON message.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/i474232898/local-forecast/internal/forecast"
	"github.com/i474232898/local-forecast/internal/observable"
)

const defaultPublishTimeout = 5 * time.Second

// Client is the part of mqtt.Client used for publishing.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Options configures a Publisher.
type Options struct {
	Topic   string
	QoS     byte
	Timeout time.Duration
}

// Publisher sends every state it is offered to the broker. Only the newest
// pending state is kept, so a slow broker never blocks the notifier.
type Publisher struct {
	client  Client
	opts    Options
	logger  *zap.Logger
	pending chan forecast.PublishedState
}

func NewPublisher(client Client, opts Options, logger *zap.Logger) *Publisher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPublishTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client:  client,
		opts:    opts,
		logger:  logger.Named("mqtt"),
		pending: make(chan forecast.PublishedState, 1),
	}
}

// Attach offers the current value of v and every later change. The returned
// func detaches the publisher.
func (p *Publisher) Attach(v *observable.Value[forecast.PublishedState]) func() {
	unsubscribe := v.Subscribe(p.Offer)
	p.Offer(v.Get())
	return unsubscribe
}

// Offer queues st for publication, replacing any state not yet sent.
func (p *Publisher) Offer(st forecast.PublishedState) {
	for {
		select {
		case p.pending <- st:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run publishes offered states until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-p.pending:
			if err := p.publish(st); err != nil {
				p.logger.Warn("state not published", zap.String("topic", p.opts.Topic), zap.Error(err))
			}
		}
	}
}

func (p *Publisher) publish(st forecast.PublishedState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	token := p.client.Publish(p.opts.Topic, p.opts.QoS, true, data)
	if !token.WaitTimeout(p.opts.Timeout) {
		return fmt.Errorf("publish timeout for topic %s", p.opts.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}

	p.logger.Debug("published state",
		zap.String("topic", p.opts.Topic),
		zap.Bool("has_error", st.HasError),
		zap.String("location", st.LocationName),
	)
	return nil
}

// Connect dials broker and waits for the initial connection, respecting ctx.
func Connect(ctx context.Context, broker, clientID string, logger *zap.Logger) (mqtt.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", zap.String("broker", broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return nil, fmt.Errorf("mqtt connect: %w", err)
			}
			return client, nil
		}
		select {
		case <-ctx.Done():
			client.Disconnect(250)
			return nil, ctx.Err()
		default:
		}
	}
}

package natsjetstream

import (
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

type Config struct {
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

type ConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	Durable       string
	FilterSubject string
	AckPolicy     string
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
}

func (cfg ConsumerConfig) jetStreamConfig() jetstream.ConsumerConfig {
	out := jetstream.ConsumerConfig{
		Name:          cfg.ConsumerName,
		Durable:       cfg.Durable,
		FilterSubject: cfg.FilterSubject,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: cfg.MaxAckPending,
	}

	switch cfg.AckPolicy {
	case "explicit":
		out.AckPolicy = jetstream.AckExplicitPolicy
	case "none":
		out.AckPolicy = jetstream.AckNonePolicy
	case "all":
		out.AckPolicy = jetstream.AckAllPolicy
	default:
		out.AckPolicy = jetstream.AckExplicitPolicy
	}
	return out
}

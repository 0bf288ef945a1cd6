package kafka

import (
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// NewWriter builds a topic-bound writer. It returns nil when no brokers are configured,
// which callers treat as "push disabled".
func NewWriter(brokers, topic string) *kafkago.Writer {
	addrs := splitBrokers(brokers)
	if len(addrs) == 0 || topic == "" {
		return nil
	}

	return &kafkago.Writer{
		Addr:         kafkago.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

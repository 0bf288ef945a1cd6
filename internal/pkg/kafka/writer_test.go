package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter(t *testing.T) {
	w := NewWriter(" broker-1:9092, broker-2:9092 ,", "leave.notifications")
	require.NotNil(t, w)

	assert.Equal(t, "leave.notifications", w.Topic)
	assert.Equal(t, kafkago.TCP("broker-1:9092", "broker-2:9092"), w.Addr)
	assert.IsType(t, &kafkago.Hash{}, w.Balancer)
}

func TestNewWriter_Disabled(t *testing.T) {
	assert.Nil(t, NewWriter("", "leave.notifications"))
	assert.Nil(t, NewWriter(" , ", "leave.notifications"))
	assert.Nil(t, NewWriter("broker:9092", ""))
}

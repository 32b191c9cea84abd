//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"quantumtrust/internal/platform/config"
	"quantumtrust/internal/platform/kafka"
	"quantumtrust/pkg/testutil/containers"
)

type ProducerSuite struct {
	suite.Suite
	broker   string
	producer *kafka.Producer
}

func TestProducerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerSuite))
}

func (s *ProducerSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
	p, err := kafka.NewProducer(config.Kafka{
		Brokers:    []string{s.broker},
		AuditTopic: "quantumtrust.audit.producer-test",
	}, nil)
	s.Require().NoError(err)
	s.producer = p
}

func (s *ProducerSuite) TearDownSuite() {
	s.producer.Close()
}

func (s *ProducerSuite) TestEnsureTopicIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.producer.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(s.producer.EnsureTopic(ctx, 1, 1))
}

func (s *ProducerSuite) TestPublishIsReadableInOrder() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(s.producer.EnsureTopic(ctx, 1, 1))

	err := s.producer.Publish(ctx,
		kafka.Message{Key: []byte("1"), Value: []byte(`{"id":1}`), Headers: map[string]string{"action": "did.issue"}},
		kafka.Message{Key: []byte("2"), Value: []byte(`{"id":2}`)},
	)
	s.Require().NoError(err)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(s.producer.Topic()),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var keys []string
	for len(keys) < 2 {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			keys = append(keys, string(r.Key))
		})
	}
	s.Equal([]string{"1", "2"}, keys[:2])
}

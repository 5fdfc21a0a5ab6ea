package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/IBM/sarama"
)

var ErrQueueFull = errors.New("kafka producer queue is full")

// producerConfig is tuned for small, ordered chat events.
func producerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Errors = true
	config.Producer.Return.Successes = false
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner // same author, same partition
	config.Version = sarama.V2_0_0_0
	config.ClientID = "chatroom-service"
	config.Producer.MaxMessageBytes = 1000000
	return config
}

// NewAsyncProducer connects a producer whose sends never wait on brokers.
func NewAsyncProducer(brokers []string) (sarama.AsyncProducer, error) {
	producer, err := sarama.NewAsyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

// Publisher writes JSON events keyed by user id to a single topic. Delivery
// failures are reported to onError from a background goroutine.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
	onError  func(error)
	wg       sync.WaitGroup
}

func NewPublisher(producer sarama.AsyncProducer, topic string, onError func(error)) *Publisher {
	if onError == nil {
		onError = func(error) {}
	}
	p := &Publisher{producer: producer, topic: topic, onError: onError}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for perr := range producer.Errors() {
			p.onError(fmt.Errorf("failed to publish to %s: %w", p.topic, perr.Err))
		}
	}()
	return p
}

// Publish hands event to the producer without blocking. It fails only when
// the event cannot be encoded or the producer's input buffer is full.
func (p *Publisher) Publish(userID uint, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(userID), 10)),
		Value: sarama.ByteEncoder(value),
	}
	select {
	case p.producer.Input() <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close flushes buffered events and waits for their outcome.
func (p *Publisher) Close() error {
	p.producer.AsyncClose()
	p.wg.Wait()
	return nil
}

package lib

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func GetKafkaProducerConfig(broker string, clientId string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": broker,
		"client.id":         clientId,
		"acks":              "all",
	}
}

// KafkaPublisher keeps one producer for the life of the process. The
// producer is created on first use.
type KafkaPublisher struct {
	broker   string
	clientId string

	mu       sync.Mutex
	producer *kafka.Producer
}

func NewKafkaPublisher(broker string, clientId string) *KafkaPublisher {
	return &KafkaPublisher{broker: broker, clientId: clientId}
}

func (k *KafkaPublisher) getProducer() (*kafka.Producer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.producer != nil {
		return k.producer, nil
	}
	cfg := GetKafkaProducerConfig(k.broker, k.clientId)
	p, err := kafka.NewProducer(&cfg)
	if err != nil {
		log.Printf("Error on producer: %s\n", err.Error())
		return nil, err
	}
	go logDeliveryReports(p)
	k.producer = p
	return p, nil
}

func logDeliveryReports(p *kafka.Producer) {
	for e := range p.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				log.Printf("[kafka] Delivery failed for %s: %s\n", *ev.TopicPartition.Topic, ev.TopicPartition.Error.Error())
			}
		case kafka.Error:
			log.Printf("[kafka] Error: %s\n", ev.Error())
		}
	}
}

// Publish encodes payload as JSON and queues it on topic.
func (k *KafkaPublisher) Publish(topic string, payload map[string]any) error {
	value, err := EncodeMessage(payload)
	if err != nil {
		log.Printf("Error processing payload: %s\n", err.Error())
		return err
	}
	p, err := k.getProducer()
	if err != nil {
		return err
	}
	if err := p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, nil); err != nil {
		log.Printf("Error sending data to %s: %s\n", topic, err.Error())
		return err
	}
	return nil
}

// Close flushes pending messages for up to 5 seconds.
func (k *KafkaPublisher) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.producer == nil {
		return
	}
	if left := k.producer.Flush(5000); left > 0 {
		log.Printf("[kafka] %d messages not delivered on shutdown\n", left)
	}
	k.producer.Close()
	k.producer = nil
}

// KafkaProduceMessage sends a single message with a short-lived producer.
func KafkaProduceMessage(broker string, clientId string, topic string, payload map[string]any) error {
	p := NewKafkaPublisher(broker, clientId)
	defer p.Close()
	return p.Publish(topic, payload)
}

func EncodeMessage(payload map[string]any) ([]byte, error) {
	return json.Marshal(payload)
}

package queue

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"
)

// dispatchJob is the wire form of a dispatch tick on RabbitMQ.
type dispatchJob struct {
	CampaignID int `json:"campaign_id"`
}

// AMQPQueue publishes and consumes dispatch ticks over RabbitMQ so the
// blocking provider calls run in the worker process, off the scheduling path.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	name string
}

// DialAMQP connects, opens a channel and declares the durable queue.
func DialAMQP(url, queueName string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPQueue{conn: conn, ch: ch, name: queueName}, nil
}

func (q *AMQPQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

// Publish ignores the topic argument: the queue was declared at dial time.
// The payload must be a campaign ID.
func (q *AMQPQueue) Publish(topic string, payload any) error {
	campaignID, ok := payload.(int)
	if !ok {
		log.Printf("⚠️ invalid AMQP payload %T, expected int", payload)
		return nil
	}

	body, err := json.Marshal(dispatchJob{CampaignID: campaignID})
	if err != nil {
		return err
	}

	return q.ch.Publish(
		"",     // exchange
		q.name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe consumes jobs with manual acks; a handler error requeues the job
// up to three times via the x-retry-count header.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	msgs, err := q.ch.Consume(
		q.name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			var job dispatchJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("Invalid job:", err)
				d.Ack(false)
				continue
			}

			if err := handler(job.CampaignID); err != nil {
				var retryCount int32
				if v, ok := d.Headers["x-retry-count"].(int32); ok {
					retryCount = v
				}
				if retryCount < 3 {
					d.Nack(false, true) // requeue
					continue
				}
			}

			d.Ack(false)
		}
	}()

	return nil
}

var _ Queue = (*AMQPQueue)(nil)

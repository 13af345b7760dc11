package mrzworker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

const RPCResponseTimeout = time.Minute * 2

// MrzRpcClient publishes a request to the workers and waits for the reply.
type MrzRpcClient struct {
	rabbitConfig RabbitConfig
	connection   *amqp.Connection
	channel      *amqp.Channel
}

func NewMrzRpcClient(rc RabbitConfig) (*MrzRpcClient, error) {
	if rc.AmqpURI == "" {
		return nil, errors.New("no amqp uri configured")
	}
	return &MrzRpcClient{rabbitConfig: rc}, nil
}

// DecodeImage sends the request over AMQP. The connection is closed once the
// reply has arrived or the wait was given up.
func (c *MrzRpcClient) DecodeImage(ctx context.Context, mrzRequest *MrzRequest) (MrzResponse, error) {
	var err error

	correlationID := uuid.NewString()

	// the image travels in the message, workers never download it
	if err := mrzRequest.loadImageBytes(); err != nil {
		return MrzResponse{}, err
	}

	log.Debug().Str("component", "MRZ_CLIENT").Str("RequestID", mrzRequest.RequestID).
		Msg("dialing rabbitMq")
	c.connection, err = amqp.Dial(c.rabbitConfig.AmqpURI)
	if err != nil {
		return MrzResponse{}, errors.Wrap(err, "could not dial rabbitMq")
	}
	defer c.connection.Close()

	c.channel, err = c.connection.Channel()
	if err != nil {
		return MrzResponse{}, err
	}

	if err := c.channel.ExchangeDeclare(
		c.rabbitConfig.Exchange,     // name
		c.rabbitConfig.ExchangeType, // type
		true,                        // durable
		false,                       // auto-deleted
		false,                       // internal
		false,                       // noWait
		nil,                         // arguments
	); err != nil {
		return MrzResponse{}, err
	}

	rpcResponseChan := make(chan MrzResponse, 1)

	callbackQueue, err := c.subscribeCallbackQueue(correlationID, rpcResponseChan)
	if err != nil {
		return MrzResponse{}, err
	}

	// Reliable publisher confirms require confirm.select support from the
	// connection.
	if c.rabbitConfig.Reliable {
		if err := c.channel.Confirm(false); err != nil {
			return MrzResponse{}, err
		}

		ack, nack := c.channel.NotifyConfirm(make(chan uint64, 1), make(chan uint64, 1))

		defer confirmDelivery(ack, nack)
	}

	mrzRequestJson, err := json.Marshal(mrzRequest)
	if err != nil {
		return MrzResponse{}, err
	}

	priority := mrzRequest.Priority
	if priority > 9 {
		priority = 9
	}

	log.Info().Str("component", "MRZ_CLIENT").Str("RequestID", mrzRequest.RequestID).
		Str("routingKey", c.rabbitConfig.RoutingKey).Str("CorrelationId", correlationID).
		Msg("publishing mrz request")
	if err = c.channel.Publish(
		c.rabbitConfig.Exchange, // publish to an exchange
		c.rabbitConfig.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			Headers:       amqp.Table{},
			ContentType:   "application/json",
			Body:          mrzRequestJson,
			DeliveryMode:  amqp.Transient, // 1=non-persistent, 2=persistent
			Priority:      priority,       // 0-9
			ReplyTo:       callbackQueue.Name,
			CorrelationId: correlationID,
		},
	); err != nil {
		return MrzResponse{}, err
	}

	return CheckReply(ctx, rpcResponseChan, c.rabbitConfig.ResponseTimeout)
}

func (c *MrzRpcClient) subscribeCallbackQueue(correlationID string, rpcResponseChan chan MrzResponse) (amqp.Queue, error) {

	// declare a callback queue where we will receive rpc responses
	callbackQueue, err := c.channel.QueueDeclare(
		"",    // name -- let rabbit generate a random one
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		return amqp.Queue{}, err
	}

	// bind the callback queue to an exchange + routing key
	if err = c.channel.QueueBind(
		callbackQueue.Name,      // name of the queue
		callbackQueue.Name,      // bindingKey
		c.rabbitConfig.Exchange, // sourceExchange
		false,                   // noWait
		nil,                     // arguments
	); err != nil {
		return amqp.Queue{}, err
	}

	deliveries, err := c.channel.Consume(
		callbackQueue.Name, // name
		tag,                // consumerTag,
		true,               // noAck
		true,               // exclusive
		false,              // noLocal
		false,              // noWait
		nil,                // arguments
	)
	if err != nil {
		return amqp.Queue{}, err
	}

	go handleRpcResponse(deliveries, correlationID, rpcResponseChan)

	return callbackQueue, nil

}

// handleRpcResponse forwards the delivery matching correlationID and returns.
func handleRpcResponse(deliveries <-chan amqp.Delivery, correlationID string, rpcResponseChan chan<- MrzResponse) {
	for d := range deliveries {
		if d.CorrelationId != correlationID {
			log.Debug().Str("component", "MRZ_CLIENT").Str("CorrelationId", d.CorrelationId).
				Msg("ignoring delivery")
			continue
		}
		log.Debug().Str("component", "MRZ_CLIENT").Int("msg_size", len(d.Body)).
			Str("CorrelationId", d.CorrelationId).Msg("got reply")

		mrzResponse := MrzResponse{}
		if err := json.Unmarshal(d.Body, &mrzResponse); err != nil {
			mrzResponse = MrzResponse{Status: StatusError, Error: "invalid reply from worker: " + err.Error()}
		}
		rpcResponseChan <- mrzResponse
		return
	}
}

// CheckReply waits for the reply. A timeout is an error, the request may still
// be processed by a worker.
func CheckReply(ctx context.Context, rpcResponseChan <-chan MrzResponse, timeout time.Duration) (MrzResponse, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case mrzResponse := <-rpcResponseChan:
		return mrzResponse, nil
	case <-timer.C:
		return MrzResponse{Status: StatusProcessing}, errors.Errorf("timeout after %v waiting for RPC response", timeout)
	case <-ctx.Done():
		return MrzResponse{Status: StatusProcessing}, ctx.Err()
	}
}

func confirmDelivery(ack, nack chan uint64) {
	select {
	case tag := <-ack:
		log.Debug().Str("component", "MRZ_CLIENT").Uint64("tag", tag).Msg("confirmed delivery")
	case tag := <-nack:
		log.Warn().Str("component", "MRZ_CLIENT").Uint64("tag", tag).Msg("failed to confirm delivery")
	}
}

package mrzworker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"github.com/streadway/amqp"
)

type MrzRpcWorker struct {
	workerConfig WorkerConfig
	sessions     *SessionRegistry
	conn         *amqp.Connection
	channel      *amqp.Channel
	tag          string
	Done         chan error
}

var (
	// tag is based on ksuid K-Sortable Globally Unique IDs
	tag = ksuid.New().String()
)

func NewMrzRpcWorker(wc WorkerConfig, sessions *SessionRegistry) (*MrzRpcWorker, error) {
	mrzRpcWorker := &MrzRpcWorker{
		workerConfig: wc,
		sessions:     sessions,
		conn:         nil,
		channel:      nil,
		tag:          tag,
		Done:         make(chan error, 1),
	}
	return mrzRpcWorker, nil
}

// Run connects and starts consuming. The connection is closed again when
// any later step fails.
func (w *MrzRpcWorker) Run() (err error) {

	queueArgs := make(amqp.Table)
	queueArgs["x-max-priority"] = uint8(9)

	log.Info().
		Str("component", "MRZ_WORKER").
		Str("tag", w.tag).
		Str("host", StripPasswordFromAmqpURI(w.workerConfig.AmqpURI)).
		Msg("dialing rabbitMq")

	w.conn, err = amqp.Dial(w.workerConfig.AmqpURI)
	if err != nil {
		log.Warn().
			Str("component", "MRZ_WORKER").
			Err(err).
			Str("tag", w.tag).
			Msg("error connecting to rabbitMq")
		return err
	}
	defer func() {
		if err != nil {
			_ = w.conn.Close()
		}
	}()

	go func() {
		if amqpErr := <-w.conn.NotifyClose(make(chan *amqp.Error)); amqpErr != nil {
			log.Warn().Str("component", "MRZ_WORKER").Str("tag", w.tag).
				Str("reason", amqpErr.Reason).Msg("connection closed")
		}
	}()

	log.Info().Str("component", "MRZ_WORKER").
		Str("tag", w.tag).
		Msg("got Connection, getting channel")
	w.channel, err = w.conn.Channel()
	if err != nil {
		return err
	}
	// a low prefetchCount reduces the memory consumption of the worker
	if err = w.channel.Qos(w.workerConfig.Prefetch, 0, true); err != nil {
		return err
	}

	if err = w.channel.ExchangeDeclare(
		w.workerConfig.Exchange,     // name of the exchange
		w.workerConfig.ExchangeType, // type
		true,                        // durable
		false,                       // delete when complete
		false,                       // internal
		false,                       // noWait
		nil,                         // arguments
	); err != nil {
		return err
	}

	// just use the routing key as the queue name, since there's no reason
	// to have a different name
	queueName := w.workerConfig.RoutingKey

	queue, err := w.channel.QueueDeclare(
		queueName, // name of the queue
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // noWait
		queueArgs, // arguments
	)
	if err != nil {
		return err
	}

	log.Info().Str("component", "MRZ_WORKER").Str("RoutingKey", w.workerConfig.RoutingKey).
		Str("tag", w.tag).
		Msg("binding to routing key")

	if err = w.channel.QueueBind(
		queue.Name,                // name of the queue
		w.workerConfig.RoutingKey, // bindingKey
		w.workerConfig.Exchange,   // sourceExchange
		false,                     // noWait
		queueArgs,                 // arguments
	); err != nil {
		return err
	}

	log.Info().Str("component", "MRZ_WORKER").Str("tag", w.tag).
		Msg("Queue bound to Exchange, starting Consume tag")
	deliveries, err := w.channel.Consume(
		queue.Name, // name
		w.tag,      // consumerTag,
		false,      // noAck
		false,      // exclusive
		false,      // noLocal
		false,      // noWait
		queueArgs,  // arguments
	)
	if err != nil {
		return err
	}

	go w.handle(deliveries, w.Done)

	return nil
}

func (w *MrzRpcWorker) Shutdown() error {
	// will close() the deliveries channel
	if err := w.channel.Cancel(w.tag, true); err != nil {
		return fmt.Errorf("worker with tag %s cancel failed: %s", w.tag, err)
	}

	if err := w.conn.Close(); err != nil {
		return fmt.Errorf("AMQP connection with worker %s close error: %s", w.tag, err)
	}

	defer log.Info().Str("component", "MRZ_WORKER").
		Str("tag", w.tag).
		Msg("Shutdown OK")

	// wait for handle() to exit
	return <-w.Done
}

func (w *MrzRpcWorker) handle(deliveries <-chan amqp.Delivery, done chan error) {
	for d := range deliveries {
		log.Info().Str("component", "MRZ_WORKER").
			Str("tag", w.tag).
			Int("msg_size", len(d.Body)).
			Uint8("Priority", d.Priority).
			Str("CorrelationId", d.CorrelationId).
			Str("ReplyTo", d.ReplyTo).
			Uint64("DeliveryTag", d.DeliveryTag).
			Msg("got delivery")

		mrzResponse := w.resultForDelivery(context.Background(), d)

		err := w.sendRpcResponse(mrzResponse, d.ReplyTo, d.CorrelationId)
		if err != nil {
			log.Error().Err(err).Str("component", "MRZ_WORKER").
				Str("id", mrzResponse.ID).
				Str("tag", w.tag).
				Msg("could not send rpc response")

			// if we can't send our response, let's just abort
			done <- err
			return
		}
		if err := d.Ack(false); err != nil {
			log.Warn().Str("component", "MRZ_WORKER").Err(err).
				Str("tag", w.tag).
				Msg("Ack() was not successful")
		}

	}
	log.Info().Str("component", "MRZ_WORKER").
		Str("tag", w.tag).
		Msg("handle: deliveries channel closed")
	done <- fmt.Errorf("handle: deliveries channel closed")
}

// resultForDelivery never fails: errors are reported in the response.
func (w *MrzRpcWorker) resultForDelivery(ctx context.Context, d amqp.Delivery) MrzResponse {

	mrzRequest := MrzRequest{}
	if err := json.Unmarshal(d.Body, &mrzRequest); err != nil {
		log.Error().Err(err).
			Str("component", "MRZ_WORKER").
			Str("Id", d.CorrelationId).
			Str("tag", w.tag).
			Msg("error unmarshalling json delivery")
		return newMrzResponse(d.CorrelationId, nil, fmt.Errorf("error unmarshalling json: %v", err))
	}

	session, err := w.sessions.Session(ctx, mrzRequest.EngineType)
	if err != nil {
		return newMrzResponse(mrzRequest.RequestID, nil, err)
	}
	result, err := RecognizeRequest(ctx, session, &mrzRequest)
	if err != nil {
		log.Error().Err(err).
			Str("component", "MRZ_WORKER").
			Str("RequestID", mrzRequest.RequestID).
			Str("tag", w.tag).
			Msg("error processing image")
	}
	return newMrzResponse(mrzRequest.RequestID, result, err)

}

func (w *MrzRpcWorker) sendRpcResponse(r MrzResponse, replyTo string, correlationID string) error {

	if w.workerConfig.Reliable {
		// Do not use Reliable=true due to major issues
		// that will completely  wedge the rpc worker.  Setting the
		// buffered channels length higher would delay the problem,
		// but then it would still happen later.
		if err := w.channel.Confirm(false); err != nil {
			return err
		}

		ack, nack := w.channel.NotifyConfirm(make(chan uint64, 100), make(chan uint64, 100))

		defer confirmDeliveryWorker(ack, nack)
	}

	body, err := json.Marshal(r)
	if err != nil {
		return err
	}

	if err := w.channel.Publish(
		w.workerConfig.Exchange, // publish to an exchange
		replyTo,                 // routing to 0 or more queues
		false,                   // mandatory
		false,                   // immediate
		amqp.Publishing{
			Headers:       amqp.Table{},
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Transient, // 1=non-persistent, 2=persistent
			Priority:      0,              // 0-9
			CorrelationId: correlationID,
		},
	); err != nil {
		return err
	}
	log.Info().Str("component", "MRZ_WORKER").Str("Id", correlationID).
		Str("tag", w.tag).
		Str("status", r.Status).
		Str("replyTo", replyTo).
		Msg("sendRpcResponse succeeded")
	return nil

}

func confirmDeliveryWorker(ack, nack chan uint64) {
	select {
	case tag := <-ack:
		log.Info().Str("component", "MRZ_WORKER").Uint64("tag", tag).
			Msg("confirmed delivery")
	case tag := <-nack:
		log.Info().Str("component", "MRZ_WORKER").Uint64("tag", tag).
			Msg("failed to confirm delivery")
	case <-time.After(RPCResponseTimeout):
		// this is bad, the worker will probably be dysfunctional
		// at this point, so panic
		log.Panic().Str("component", "MRZ_WORKER").Msg("timeout trying to confirm delivery. Worker panic")
	}
}

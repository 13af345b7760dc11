package mrzworker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type mrzQueueManager struct {
	NumMessages  uint `json:"messages"`
	NumConsumers uint `json:"consumers"`
	MessageBytes uint `json:"message_bytes"`
}

type mrzResManager struct {
	MemLimit uint64 `json:"mem_limit"`
	MemUsed  uint64 `json:"mem_used"`
}

const (
	factorForMessageAccept uint   = 2
	memoryThreshold        uint64 = 95
)

var (
	// AppStop and ServiceCanAccept are global. Used to set the flag for logging and stopping the application
	AppStop            bool
	ServiceCanAccept   bool
	ServiceCanAcceptMu sync.Mutex
)

// SetServiceCanAccept is used when no resource manager decides admission,
// eg. for in-place only daemons.
func SetServiceCanAccept(canAccept bool) {
	ServiceCanAcceptMu.Lock()
	ServiceCanAccept = canAccept
	ServiceCanAcceptMu.Unlock()
}

// StopAccepting refuses new requests because the application goes down.
func StopAccepting() {
	ServiceCanAcceptMu.Lock()
	ServiceCanAccept = false
	AppStop = true
	ServiceCanAcceptMu.Unlock()
}

// CheckForAcceptRequest checks if resources for incoming requests are available
func CheckForAcceptRequest(urlQueue string, urlStat string, statusChanged bool) bool {

	jsonQueueStat, err := url2bytes(urlQueue)
	if err != nil {
		log.Error().Err(err).Str("component", "MRZ_RESMAN").Msg("can't get queue stats")
		return false
	}
	jsonResStat, err := url2bytes(urlStat)
	if err != nil {
		log.Error().Err(err).Str("component", "MRZ_RESMAN").Msg("can't get RabbitMQ memory stats")
		return false
	}

	queueManager := mrzQueueManager{}
	if err := json.Unmarshal(jsonQueueStat, &queueManager); err != nil {
		log.Error().Err(err).Str("component", "MRZ_RESMAN").
			Str("body", string(jsonQueueStat)).Msg("error unmarshaling queue stats")
		return false
	}

	var resManager []mrzResManager
	if err := json.Unmarshal(jsonResStat, &resManager); err != nil {
		log.Error().Err(err).Str("component", "MRZ_RESMAN").
			Str("body", string(jsonResStat)).Msg("error unmarshaling node stats")
		return false
	}

	isAvailable := schedulerByMemoryLoad(resManager) && schedulerByWorkerNumber(queueManager)

	if statusChanged {
		log.Info().Str("component", "MRZ_RESMAN").
			Uint("MessageBytes", queueManager.MessageBytes).
			Uint("NumConsumers", queueManager.NumConsumers).
			Uint("NumMessages", queueManager.NumMessages).
			Interface("resManager", resManager).
			Msg("MRZ_RESMAN stats")

		if isAvailable {
			log.Info().Str("component", "MRZ_RESMAN").Msg("open-mrz is operational with free resources. We are ready to serve")
		} else {
			log.Info().Str("component", "MRZ_RESMAN").Msg("open-mrz is alive but won't serve any requests. Workers are busy or not connected")
		}
	}

	return isAvailable
}

// computes the ratio of total available memory and used memory and returns false if a threshold is reached
func schedulerByMemoryLoad(resManager []mrzResManager) bool {
	var memTotalAvailable uint64
	var memTotalInUse uint64
	for k := range resManager {
		memTotalInUse += resManager[k].MemUsed
		memTotalAvailable += resManager[k].MemLimit
	}

	return memTotalInUse < ((memTotalAvailable * memoryThreshold) / 100)
}

// if the number of messages in the queue is too high we should not accept new messages
func schedulerByWorkerNumber(queueManager mrzQueueManager) bool {
	return queueManager.NumMessages < queueManager.NumConsumers*factorForMessageAccept
}

// SetResManagerState polls the RabbitMQ API every interval and sets ServiceCanAccept
// when memory of RabbitMQ and the number of queued messages allow it. It returns
// when ctx is done.
func SetResManagerState(ctx context.Context, amqpAPIConfig RabbitConfig, interval time.Duration) {
	urlQueue := amqpAPIConfig.AmqpAPIURI + amqpAPIConfig.APIPathQueue + amqpAPIConfig.APIQueueName
	urlStat := amqpAPIConfig.AmqpAPIURI + amqpAPIConfig.APIPathStats

	var (
		valueChanged bool
		newValue     = false
		oldValue     = true
	)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		// only print the RESMAN output if the state has changed
		valueChanged = oldValue != newValue
		if valueChanged {
			oldValue = newValue
		}
		// computed before taking the lock, the API calls may be slow
		newValue = CheckForAcceptRequest(urlQueue, urlStat, valueChanged)
		ServiceCanAcceptMu.Lock()
		if !AppStop {
			ServiceCanAccept = newValue
		}
		ServiceCanAcceptMu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

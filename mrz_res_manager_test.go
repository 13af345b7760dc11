package mrzworker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rabbitAPIServer(t *testing.T, queue, nodes string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/api/nodes"):
			_, _ = w.Write([]byte(nodes))
		case strings.HasSuffix(r.URL.Path, "/decode-mrz"):
			_, _ = w.Write([]byte(queue))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckForAcceptRequest(t *testing.T) {
	free := rabbitAPIServer(t,
		`{"messages":1,"consumers":2,"message_bytes":100}`,
		`[{"mem_limit":1000,"mem_used":100}]`)
	assert.True(t, CheckForAcceptRequest(free.URL+"/api/queues/%2f/decode-mrz", free.URL+"/api/nodes", true))

	busy := rabbitAPIServer(t,
		`{"messages":4,"consumers":2}`,
		`[{"mem_limit":1000,"mem_used":100}]`)
	assert.False(t, CheckForAcceptRequest(busy.URL+"/api/queues/%2f/decode-mrz", busy.URL+"/api/nodes", false))

	full := rabbitAPIServer(t,
		`{"messages":0,"consumers":2}`,
		`[{"mem_limit":1000,"mem_used":960}]`)
	assert.False(t, CheckForAcceptRequest(full.URL+"/api/queues/%2f/decode-mrz", full.URL+"/api/nodes", false))

	assert.False(t, CheckForAcceptRequest(free.URL+"/missing", free.URL+"/api/nodes", false))

	broken := rabbitAPIServer(t, `{"messages":`, `[]`)
	assert.False(t, CheckForAcceptRequest(broken.URL+"/api/queues/%2f/decode-mrz", broken.URL+"/api/nodes", false))
}

func TestSchedulers(t *testing.T) {
	assert.False(t, schedulerByWorkerNumber(mrzQueueManager{NumConsumers: 0}), "no workers connected")
	assert.True(t, schedulerByWorkerNumber(mrzQueueManager{NumMessages: 3, NumConsumers: 2}))
	assert.False(t, schedulerByMemoryLoad(nil))
	assert.True(t, schedulerByMemoryLoad([]mrzResManager{{MemLimit: 100, MemUsed: 10}, {MemLimit: 100, MemUsed: 90}}))
}

func TestSetResManagerState(t *testing.T) {
	server := rabbitAPIServer(t,
		`{"messages":0,"consumers":1}`,
		`[{"mem_limit":1000,"mem_used":1}]`)
	rabbitConfig := DefaultRabbitConfig()
	rabbitConfig.AmqpAPIURI = server.URL

	SetServiceCanAccept(false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		SetResManagerState(ctx, rabbitConfig, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		ServiceCanAcceptMu.Lock()
		defer ServiceCanAcceptMu.Unlock()
		return ServiceCanAccept
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("resource manager did not stop")
	}
}

package redis

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type broadcastCall struct {
	event string
	room  string
	data  string
}

// captureBroadcaster records every broadcast it receives.
type captureBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (c *captureBroadcaster) Broadcast(event, room string, data json.RawMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event == "" {
		return false
	}
	c.calls = append(c.calls, broadcastCall{event: event, room: room, data: string(data)})
	return true
}

func (c *captureBroadcaster) recorded() []broadcastCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]broadcastCall(nil), c.calls...)
}

func testSubscriber(broadcaster Broadcaster) *Subscriber {
	return NewSubscriber(nil, broadcaster, []string{"ch", "p_ch"}, "*ch")
}

func TestHandleMessage_ValidEnvelope(t *testing.T) {
	capture := &captureBroadcaster{}
	s := testSubscriber(capture)

	s.handleMessage("exact", "ch", "", []byte(`{"event":"score_update","room":"match_42","data":{"score":3}}`))

	calls := capture.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "score_update", calls[0].event)
	assert.Equal(t, "match_42", calls[0].room)
	assert.JSONEq(t, `{"score":3}`, calls[0].data)
}

func TestHandleMessage_NoRoomIsGlobal(t *testing.T) {
	capture := &captureBroadcaster{}
	s := testSubscriber(capture)

	s.handleMessage("pattern", "prod_ch", "*ch", []byte(`{"event":"e","data":{}}`))

	calls := capture.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "e", calls[0].event)
	assert.Empty(t, calls[0].room)
}

func TestHandleMessage_MalformedPayloadDropped(t *testing.T) {
	capture := &captureBroadcaster{}
	s := testSubscriber(capture)

	s.handleMessage("exact", "ch", "", []byte(`{not json`))
	s.handleMessage("exact", "ch", "", []byte(``))

	assert.Empty(t, capture.recorded())
}

func TestHandleMessage_MissingEventDropped(t *testing.T) {
	capture := &captureBroadcaster{}
	s := testSubscriber(capture)

	s.handleMessage("exact", "ch", "", []byte(`{"room":"match_42"}`))
	s.handleMessage("exact", "ch", "", []byte(`{"event":"","data":{}}`))

	assert.Empty(t, capture.recorded())
}

func TestHandleMessage_PatternDuplicateStillBroadcasts(t *testing.T) {
	// A publish on an exact-set channel also matches the pattern; both
	// deliveries are processed independently (detection only, no dedup).
	capture := &captureBroadcaster{}
	s := testSubscriber(capture)

	payload := []byte(`{"event":"e"}`)
	s.handleMessage("exact", "p_ch", "", payload)
	s.handleMessage("pattern", "p_ch", "*ch", payload)

	assert.Len(t, capture.recorded(), 2)
}

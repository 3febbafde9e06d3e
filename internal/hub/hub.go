package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/gunturachievement/socket-io-roconal/internal/domain"
	"github.com/gunturachievement/socket-io-roconal/internal/logging"
	"github.com/gunturachievement/socket-io-roconal/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

var emptyObject = json.RawMessage(`{}`)

// session is one live connection: its writer and the rooms it joined.
// The rooms map mirrors the hub's room index; both are only touched from
// the hub goroutine, so every mutation keeps them consistent atomically.
type session struct {
	id     uuid.UUID
	writer *clientWriter
	rooms  map[string]struct{}
}

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	sessionID    uuid.UUID
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	sessionID uuid.UUID
}

type joinCmd struct {
	baseHubCmd
	sessionID uuid.UUID
	room      string
}

type leaveCmd struct {
	baseHubCmd
	sessionID uuid.UUID
	room      string
}

type broadcastCmd struct {
	baseHubCmd
	room  string
	frame []byte
}

type sessionCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type roomCountCmd struct {
	baseHubCmd
	room         string
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub owns all room and session state. It is a single-goroutine actor:
// commands are processed one at a time, so every delivery of one broadcast
// is initiated before the next ingested message is handled.
type Hub struct {
	cmdCh          chan hubCmd
	clock          clockwork.Clock
	sessions       map[uuid.UUID]*session
	rooms          map[string]map[uuid.UUID]*session
	maxConnections int
	done           chan struct{}
}

// New creates a hub and starts its command loop.
// maxConnections caps concurrently registered sessions.
func New(clock clockwork.Clock, maxConnections int) *Hub {
	h := &Hub{
		cmdCh:          make(chan hubCmd, 256),
		clock:          clock,
		sessions:       make(map[uuid.UUID]*session),
		rooms:          make(map[string]map[uuid.UUID]*session),
		maxConnections: maxConnections,
		done:           make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds a new session with an empty room set.
// Returns an error only when the connection cap is reached; the connection
// is closed by the hub in that case.
func (h *Hub) Register(sessionID uuid.UUID, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{sessionID: sessionID, connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a session from every room it belonged to and stops
// its writer. Safe to call for unknown sessions.
func (h *Hub) Unregister(sessionID uuid.UUID) {
	h.cmdCh <- unregisterCmd{sessionID: sessionID}
}

// Join adds a session to a room and acknowledges with a "joined" frame.
// An empty room name is silently ignored. Joining twice is a no-op that
// still acknowledges.
func (h *Hub) Join(sessionID uuid.UUID, room string) {
	if room == "" {
		return
	}
	h.cmdCh <- joinCmd{sessionID: sessionID, room: room}
}

// Leave removes a session from a room and acknowledges with a "left" frame.
// Unknown memberships and empty room names are silently ignored.
func (h *Hub) Leave(sessionID uuid.UUID, room string) {
	if room == "" {
		return
	}
	h.cmdCh <- leaveCmd{sessionID: sessionID, room: room}
}

// Broadcast delivers an event to every member of room, or to every
// connected session when room is empty. It is the single validation gate
// for both ingestion paths: an empty event name is rejected and nothing is
// delivered. A nil payload is replaced with an empty JSON object.
//
// Delivery is fire-and-forget per session; the return value reflects only
// envelope validity, never per-recipient success.
func (h *Hub) Broadcast(event, room string, data json.RawMessage) bool {
	if event == "" {
		slog.Warn("Dropping broadcast without event name", "room", room)
		metrics.BroadcastsRejectedTotal.Inc()
		return false
	}

	if len(data) == 0 {
		data = emptyObject
	}

	frame, err := json.Marshal(domain.Frame{Event: event, Data: data})
	if err != nil {
		slog.Error("Failed to marshal broadcast frame", "event", event, "error", err)
		metrics.BroadcastsRejectedTotal.Inc()
		return false
	}

	h.cmdCh <- broadcastCmd{room: room, frame: frame}
	return true
}

// SessionCount returns the number of connected sessions, or -1 on timeout.
func (h *Hub) SessionCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- sessionCountCmd{replyChannel: replyCh}
	return h.awaitCount(replyCh)
}

// RoomCount returns the number of members in a room, or -1 on timeout.
func (h *Hub) RoomCount(room string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- roomCountCmd{room: room, replyChannel: replyCh}
	return h.awaitCount(replyCh)
}

func (h *Hub) awaitCount(replyCh chan int) int {
	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("Hub count query timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, sending close frames to every client.
// Blocks until the hub goroutine has exited or the stop timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded, forcing exit", "timeout", stopTimeout)
		close(h.done)
	}
}

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.closeAll("hub panic")
		}
	}()
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.sessionID)
		case joinCmd:
			h.handleJoin(c)
		case leaveCmd:
			h.handleLeave(c)
		case broadcastCmd:
			h.handleBroadcast(c)
		case sessionCountCmd:
			c.replyChannel <- len(h.sessions)
		case roomCountCmd:
			c.replyChannel <- len(h.rooms[c.room])
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.sessions) >= h.maxConnections {
		slog.Warn("Rejecting connection: limit reached", "max_connections", h.maxConnections)
		metrics.HubConnectionsRejected.Inc()
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("connection limit (%d) reached", h.maxConnections)
		return
	}

	h.sessions[c.sessionID] = &session{
		id:     c.sessionID,
		writer: newClientWriter(c.connection, h.clock),
		rooms:  make(map[string]struct{}),
	}

	metrics.HubConnectedSessions.Set(float64(len(h.sessions)))
	slog.Debug("Client connected", "session_id", c.sessionID.String(), "total_sessions", len(h.sessions))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(sessionID uuid.UUID) {
	s, exists := h.sessions[sessionID]
	if !exists {
		return
	}

	s.writer.stop()
	for room := range s.rooms {
		h.removeFromRoom(s, room)
	}
	delete(h.sessions, sessionID)

	metrics.HubConnectedSessions.Set(float64(len(h.sessions)))
	slog.Debug("Client disconnected", "session_id", sessionID.String(), "total_sessions", len(h.sessions))
}

func (h *Hub) handleJoin(c joinCmd) {
	s, exists := h.sessions[c.sessionID]
	if !exists {
		return
	}

	if _, member := s.rooms[c.room]; !member {
		s.rooms[c.room] = struct{}{}
		members, ok := h.rooms[c.room]
		if !ok {
			members = make(map[uuid.UUID]*session)
			h.rooms[c.room] = members
			metrics.HubActiveRooms.Set(float64(len(h.rooms)))
		}
		members[c.sessionID] = s
		logging.WithRoom(c.room).Debug("Session joined room", "session_id", c.sessionID.String(), "members", len(members))
	}

	h.sendAck(s, "joined", c.room)
}

func (h *Hub) handleLeave(c leaveCmd) {
	s, exists := h.sessions[c.sessionID]
	if !exists {
		return
	}

	if _, member := s.rooms[c.room]; member {
		delete(s.rooms, c.room)
		h.removeFromRoom(s, c.room)
		logging.WithRoom(c.room).Debug("Session left room", "session_id", c.sessionID.String())
	}

	h.sendAck(s, "left", c.room)
}

// removeFromRoom drops the room-side back-reference and prunes empty rooms.
// The caller maintains the session-side set.
func (h *Hub) removeFromRoom(s *session, room string) {
	members, exists := h.rooms[room]
	if !exists {
		return
	}
	delete(members, s.id)
	if len(members) == 0 {
		delete(h.rooms, room)
		metrics.HubActiveRooms.Set(float64(len(h.rooms)))
	}
}

func (h *Hub) sendAck(s *session, event, room string) {
	data, err := json.Marshal(domain.RoomAck{Room: room})
	if err != nil {
		return
	}
	frame, err := json.Marshal(domain.Frame{Event: event, Data: data})
	if err != nil {
		return
	}
	h.deliver(s, frame)
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	var recipients map[uuid.UUID]*session
	if c.room != "" {
		recipients = h.rooms[c.room]
		metrics.BroadcastsTotal.WithLabelValues("room").Inc()
	} else {
		recipients = h.sessions
		metrics.BroadcastsTotal.WithLabelValues("global").Inc()
	}

	var slow []uuid.UUID
	for id, s := range recipients {
		if !h.deliver(s, c.frame) {
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		slog.Warn("Disconnecting slow client", "session_id", id.String())
		metrics.HubSlowSessionsEvicted.Inc()
		h.handleUnregister(id)
	}
}

// deliver hands a frame to the session's writer without blocking.
// Returns false when the send buffer is full.
func (h *Hub) deliver(s *session, frame []byte) bool {
	select {
	case s.writer.sendChannel <- frame:
		return true
	default:
		return false
	}
}

func (h *Hub) handleStop() {
	total := len(h.sessions)
	slog.Info("Hub shutting down", "sessions", total, "rooms", len(h.rooms))
	h.closeAll("Server shutting down")
	slog.Info("Hub shutdown complete", "disconnected_sessions", total)
}

func (h *Hub) closeAll(reason string) {
	for id, s := range h.sessions {
		s.writer.stopGraceful(reason)
		delete(h.sessions, id)
	}
	for room := range h.rooms {
		delete(h.rooms, room)
	}
	metrics.HubConnectedSessions.Set(0)
	metrics.HubActiveRooms.Set(0)
}

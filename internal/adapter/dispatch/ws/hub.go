package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

const (
	helloTimeout  = 5 * time.Second
	readTimeout   = 60 * time.Second
	writeTimeout  = 5 * time.Second
	outboxSize    = 256
	effectsRadius = 48.0
)

var ErrBadHello = errors.New("expected hello")

// Envelope is the frame sent to and read from observer clients.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Hello struct {
	Observer world.ObserverID `json:"observer"`
}

type ShowPayload struct {
	Object string          `json:"object"`
	State  ports.PartState `json:"state"`
}

type HidePayload struct {
	Object string `json:"object"`
}

type PosePayload struct {
	Object string     `json:"object"`
	Pose   crate.Pose `json:"pose"`
}

type EquipmentPayload struct {
	Object string              `json:"object"`
	Slot   crate.EquipmentSlot `json:"slot"`
	Item   *crate.Item         `json:"item"`
}

type ParticlesPayload struct {
	At    world.Position `json:"at"`
	Count int            `json:"count"`
	Color ports.Color    `json:"color"`
}

type SoundPayload struct {
	At   world.Position `json:"at"`
	Name string         `json:"name"`
}

type MessagePayload struct {
	Text string `json:"text"`
}

type client struct {
	id     world.ObserverID
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func (c *client) close() { c.once.Do(func() { close(c.closed) }) }

// Hub fans visual updates, effects and chat out to websocket observers. It
// never blocks the caller: a full outbox drops the frame.
type Hub struct {
	log       *log.Logger
	directory ports.ObserverDirectory

	upgrader websocket.Upgrader
	dropped  atomic.Uint64

	mu      sync.RWMutex
	clients map[world.ObserverID]*client
	stale   func(world.ObserverID)
}

// NewHub builds a hub. directory scopes effects to nearby observers; nil
// sends effects to everyone. origin restricts browser upgrades the same way
// the HTTP API's CORS origin does; empty or "*" accepts any.
func NewHub(directory ports.ObserverDirectory, origin string, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		log:       logger,
		directory: directory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     checkOrigin(origin),
		},
		clients: map[world.ObserverID]*client{},
	}
}

func checkOrigin(origin string) func(*http.Request) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "*" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		got := r.Header.Get("Origin")
		return got == "" || strings.EqualFold(got, origin)
	}
}

// OnStale registers fn to hear about observers whose client no longer
// mirrors what was sent to them: a new or closed connection, or a visual
// frame dropped on a full outbox. fn runs outside the hub lock and must not
// block.
func (h *Hub) OnStale(fn func(world.ObserverID)) {
	h.mu.Lock()
	h.stale = fn
	h.mu.Unlock()
}

// Dropped counts frames discarded because a client fell behind.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) Connected(id world.ObserverID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[id]
	return ok
}

// Handler upgrades the request. The client must send a hello naming its
// observer id first; a newer connection for the same id replaces the old.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, err := readHello(conn)
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), time.Now().Add(time.Second))
			return
		}

		c := &client{id: id, out: make(chan []byte, outboxSize), closed: make(chan struct{})}
		h.attach(c)
		defer h.detach(c)

		writeErr := make(chan error, 1)
		go func() { writeErr <- h.writeLoop(conn, c) }()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		c.close()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func readHello(conn *websocket.Conn) (world.ObserverID, error) {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil || env.Type != "hello" {
		return "", ErrBadHello
	}
	var hello Hello
	if err := json.Unmarshal(env.Payload, &hello); err != nil || strings.TrimSpace(string(hello.Observer)) == "" {
		return "", ErrBadHello
	}
	return hello.Observer, nil
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) error {
	for {
		select {
		case <-c.closed:
			return nil
		case b := <-c.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return err
			}
		}
	}
}

func (h *Hub) attach(c *client) {
	h.mu.Lock()
	old := h.clients[c.id]
	h.clients[c.id] = c
	stale := h.stale
	h.mu.Unlock()
	if old != nil {
		old.close()
	}
	if stale != nil {
		stale(c.id)
	}
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	current := h.clients[c.id] == c
	if current {
		delete(h.clients, c.id)
	}
	stale := h.stale
	h.mu.Unlock()
	if current && stale != nil {
		stale(c.id)
	}
}

func (h *Hub) Show(objectID string, observers []world.ObserverID, state ports.PartState) {
	h.sendTo(observers, "show", ShowPayload{Object: objectID, State: state})
}

func (h *Hub) Hide(objectID string, observers []world.ObserverID) {
	h.sendTo(observers, "hide", HidePayload{Object: objectID})
}

func (h *Hub) UpdatePose(objectID string, observers []world.ObserverID, pose crate.Pose) {
	h.sendTo(observers, "pose", PosePayload{Object: objectID, Pose: pose})
}

func (h *Hub) UpdateEquipment(objectID string, observers []world.ObserverID, slot crate.EquipmentSlot, item *crate.Item) {
	h.sendTo(observers, "equipment", EquipmentPayload{Object: objectID, Slot: slot, Item: item})
}

func (h *Hub) Particles(at world.Position, count int, color ports.Color) {
	h.sendTo(h.near(at), "particles", ParticlesPayload{At: at, Count: count, Color: color})
}

func (h *Hub) Sound(at world.Position, name string) {
	h.sendTo(h.near(at), "sound", SoundPayload{At: at, Name: name})
}

func (h *Hub) Notify(observer world.ObserverID, message string) {
	h.sendTo([]world.ObserverID{observer}, "message", MessagePayload{Text: message})
}

func (h *Hub) Broadcast(message string) {
	h.sendTo(h.everyone(), "message", MessagePayload{Text: message})
}

func (h *Hub) near(at world.Position) []world.ObserverID {
	if h.directory == nil {
		return h.everyone()
	}
	var out []world.ObserverID
	for _, p := range h.directory.Connected() {
		if world.Distance(at, p.Position) <= effectsRadius {
			out = append(out, p.ID)
		}
	}
	return out
}

func (h *Hub) everyone() []world.ObserverID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]world.ObserverID, 0, len(h.clients))
	for id := range h.clients {
		out = append(out, id)
	}
	return out
}

func (h *Hub) sendTo(observers []world.ObserverID, kind string, payload any) {
	if len(observers) == 0 {
		return
	}
	b, err := encode(kind, payload)
	if err != nil {
		h.log.Printf("ws: encode %s: %v", kind, err)
		return
	}
	var missed []world.ObserverID
	h.mu.RLock()
	for _, id := range observers {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case c.out <- b:
		default:
			h.dropped.Add(1)
			missed = append(missed, id)
		}
	}
	stale := h.stale
	h.mu.RUnlock()
	if stale == nil || !visual(kind) {
		return
	}
	for _, id := range missed {
		stale(id)
	}
}

func visual(kind string) bool {
	switch kind {
	case "show", "hide", "pose", "equipment":
		return true
	}
	return false
}

func encode(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: kind, Payload: raw})
}

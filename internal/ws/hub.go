package ws

import "sync"

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Firehose subscribes a client to events from every service.
const Firehose = "*"

// Hub fans timeline events out to stream subscribers, keyed by service ID.
// Clients registered under Firehose receive every event.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
}

// message couples payload with service identifier.
type message struct {
	serviceID string
	payload   []byte
}

// subscription defines register/unregister requests.
type subscription struct {
	serviceID string
	client    Subscriber
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.serviceID]; !ok {
				h.clients[sub.serviceID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.serviceID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			h.drop(sub.serviceID, sub.client)
		case msg := <-h.broadcast:
			h.deliver(msg.serviceID, msg.payload)
			h.deliver(Firehose, msg.payload)
		}
	}
}

func (h *Hub) deliver(key string, payload []byte) {
	clients, ok := h.clients[key]
	if !ok {
		return
	}
	for c := range clients {
		if err := c.Send(payload); err != nil {
			c.Close()
			delete(clients, c)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, key)
	}
}

func (h *Hub) drop(key string, client Subscriber) {
	if clients, ok := h.clients[key]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, key)
		}
	}
}

// Register adds a client to a service stream. An empty service ID subscribes
// to the firehose.
func (h *Hub) Register(serviceID string, client Subscriber) {
	if serviceID == "" {
		serviceID = Firehose
	}
	h.register <- subscription{serviceID: serviceID, client: client}
}

// Unregister removes a client.
func (h *Hub) Unregister(serviceID string, client Subscriber) {
	if serviceID == "" {
		serviceID = Firehose
	}
	h.unreg <- subscription{serviceID: serviceID, client: client}
}

// Broadcast sends payload to the service's subscribers and the firehose.
func (h *Hub) Broadcast(serviceID string, payload []byte) {
	h.broadcast <- message{serviceID: serviceID, payload: payload}
}

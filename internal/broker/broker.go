// Package broker implements a per-user broadcast channel, grounded on the
// teacher's go-server/pkg/websocket/hub.go register/unregister/broadcast
// channel loop, reshaped from one global hub into one lazily-created hub
// per user so a mutation by any of a user's devices only reaches that
// user's other live connections.
package broker

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// capacity bounds each subscriber's outbound buffer; a slow subscriber
// drops its oldest queued message rather than blocking the publisher.
const capacity = 100

// Message is what flows through a user's broadcast channel: the device
// that caused the mutation, and the already-encoded wire frame.
type Message struct {
	OriginDeviceID uuid.UUID
	Payload        []byte
}

type subscriber struct {
	deviceID uuid.UUID
	ch       chan Message
}

// userHub fans a single user's published messages out to every
// subscriber (device connection) except the one that originated the
// mutation.
type userHub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// Broker holds one userHub per user with at least one live subscriber,
// and removes it once the last subscriber leaves.
type Broker struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*userHub
	log    zerolog.Logger
	onDrop func()
}

// New builds a Broker. onDrop, if non-nil, is called once per message lost
// to a full subscriber buffer, so the caller can wire it to a prometheus
// counter without this package importing metrics directly.
func New(log zerolog.Logger, onDrop func()) *Broker {
	return &Broker{
		users:  make(map[uuid.UUID]*userHub),
		log:    log.With().Str("component", "broker").Logger(),
		onDrop: onDrop,
	}
}

// Subscribe registers a new subscriber for userID and returns a channel of
// messages originating from other devices, plus an unsubscribe func that
// must be called exactly once when the connection closes.
func (b *Broker) Subscribe(userID, deviceID uuid.UUID) (<-chan Message, func()) {
	hub := b.getOrCreateHub(userID)

	sub := &subscriber{deviceID: deviceID, ch: make(chan Message, capacity)}
	hub.mu.Lock()
	hub.subs[sub] = struct{}{}
	hub.mu.Unlock()

	unsubscribe := func() {
		hub.mu.Lock()
		delete(hub.subs, sub)
		empty := len(hub.subs) == 0
		hub.mu.Unlock()
		close(sub.ch)

		if empty {
			b.mu.Lock()
			if h, ok := b.users[userID]; ok && h == hub {
				h.mu.Lock()
				stillEmpty := len(h.subs) == 0
				h.mu.Unlock()
				if stillEmpty {
					delete(b.users, userID)
				}
			}
			b.mu.Unlock()
		}
	}
	return sub.ch, unsubscribe
}

// Publish fans payload out to every subscriber of userID other than
// originDeviceID. A subscriber with a full buffer has its oldest message
// dropped to make room, a drop-rather-than-block-the-publisher policy
// applied per-subscriber instead of disconnecting.
func (b *Broker) Publish(userID, originDeviceID uuid.UUID, payload []byte) {
	b.mu.Lock()
	hub, ok := b.users[userID]
	b.mu.Unlock()
	if !ok {
		return
	}

	msg := Message{OriginDeviceID: originDeviceID, Payload: payload}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	for sub := range hub.subs {
		if sub.deviceID == originDeviceID {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			select {
			case <-sub.ch:
				if b.onDrop != nil {
					b.onDrop()
				}
			default:
			}
			select {
			case sub.ch <- msg:
			default:
				b.log.Warn().Str("user_id", userID.String()).Msg("broadcast channel full after drop, message lost")
				if b.onDrop != nil {
					b.onDrop()
				}
			}
		}
	}
}

func (b *Broker) getOrCreateHub(userID uuid.UUID) *userHub {
	b.mu.Lock()
	defer b.mu.Unlock()
	hub, ok := b.users[userID]
	if !ok {
		hub = &userHub{subs: make(map[*subscriber]struct{})}
		b.users[userID] = hub
	}
	return hub
}

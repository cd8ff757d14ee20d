// Package natsfanout implements the optional cross-instance broadcast
// relay that lets multiple relay server instances share live updates,
// using standard nats.go connection/reconnect handler wiring. It is
// strictly additive: with no NATS URL configured the server behaves
// exactly as a single in-process broker.Broker.
package natsfanout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/splenwilz/clipslot/internal/broker"
)

const subjectPrefix = "clipslot.user."

// Relay republishes every local broker.Publish into NATS, and republishes
// every NATS message for this user back into the local broker, so a
// second server instance subscribed to the same subject sees the same
// mutation. Origin-device filtering still happens at broker.Subscribe.
type Relay struct {
	conn   *nats.Conn
	local  *broker.Broker
	log    zerolog.Logger
	selfID string
}

// Connect dials url and subscribes to clipslot.user.* so this instance
// receives mutations published by any other instance in the cluster.
func Connect(url string, local *broker.Broker, log zerolog.Logger) (*Relay, error) {
	log = log.With().Str("component", "natsfanout").Logger()

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ConnectHandler(func(c *nats.Conn) { log.Info().Str("url", c.ConnectedUrl()).Msg("connected to nats") }),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) { log.Warn().Err(err).Msg("disconnected from nats") }),
		nats.ReconnectHandler(func(c *nats.Conn) { log.Info().Msg("reconnected to nats") }),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) { log.Error().Err(err).Msg("nats error") }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	r := &Relay{conn: conn, local: local, log: log, selfID: uuid.New().String()}

	if _, err := conn.Subscribe(subjectPrefix+"*", r.handleRemote); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to cluster fan-out subject: %w", err)
	}

	return r, nil
}

// Publish mirrors a local mutation onto the cluster subject for userID.
// Call this alongside, never instead of, broker.Broker.Publish.
func (r *Relay) Publish(userID, originDeviceID uuid.UUID, payload []byte) {
	envelope := remoteEnvelope{OriginDeviceID: originDeviceID, Payload: payload, SourceInstance: r.selfID}
	data, err := encodeEnvelope(envelope)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to encode fan-out envelope")
		return
	}
	if err := r.conn.Publish(subjectPrefix+userID.String(), data); err != nil {
		r.log.Error().Err(err).Msg("failed to publish to nats")
	}
}

func (r *Relay) handleRemote(msg *nats.Msg) {
	envelope, err := decodeEnvelope(msg.Data)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to decode fan-out envelope")
		return
	}
	if envelope.SourceInstance == r.selfID {
		return // avoid re-publishing our own mutation back to local subscribers
	}

	userID, err := userIDFromSubject(msg.Subject)
	if err != nil {
		r.log.Error().Err(err).Str("subject", msg.Subject).Msg("unrecognized fan-out subject")
		return
	}

	r.local.Publish(userID, envelope.OriginDeviceID, envelope.Payload)
}

func (r *Relay) Close() {
	r.conn.Close()
}

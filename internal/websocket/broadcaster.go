package websocket

import "trivia-service/internal/game"

// Broadcaster resolves a session's logical recipients to whichever socket is
// current at send time. Recipients without a socket are skipped.
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

func (b *Broadcaster) ToHost(sessionID string, ev game.Event) {
	if c := b.hub.host(sessionID); c != nil {
		c.SendMessage(MessageType(ev.Type), ev.Payload)
	}
}

func (b *Broadcaster) ToPlayer(sessionID, clientID string, ev game.Event) {
	if c := b.hub.player(sessionID, clientID); c != nil {
		c.SendMessage(MessageType(ev.Type), ev.Payload)
	}
}

func (b *Broadcaster) CloseRoom(sessionID string) {
	b.hub.CloseRoom(sessionID)
}

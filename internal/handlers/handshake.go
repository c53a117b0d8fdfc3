package handlers

import (
	"errors"
	"net/url"
	"strings"

	"trivia-service/internal/constants"
)

var (
	ErrMissingSessionID = errors.New("session_id is required")
	ErrInvalidRole      = errors.New("invalid role")
)

const maxClientIDLength = 128

// Handshake is either a HostConnection or a PlayerConnection.
type Handshake interface {
	Session() string
	Role() string
}

type HostConnection struct {
	SessionID string
	Token     string
}

func (h HostConnection) Session() string { return h.SessionID }
func (h HostConnection) Role() string    { return constants.RoleHost }

type PlayerConnection struct {
	SessionID string
	ClientID  string
}

func (p PlayerConnection) Session() string { return p.SessionID }
func (p PlayerConnection) Role() string    { return constants.RolePlayer }

// ParseHandshake resolves the websocket query parameters once. A player must
// name a client id; the host may carry a token.
func ParseHandshake(query url.Values) (Handshake, error) {
	sessionID := strings.TrimSpace(query.Get("session_id"))
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}

	switch query.Get("role") {
	case constants.RoleHost:
		return HostConnection{SessionID: sessionID, Token: query.Get("token")}, nil
	case constants.RolePlayer:
		clientID := strings.TrimSpace(query.Get("client_id"))
		if clientID == "" || len(clientID) > maxClientIDLength || clientID == hostClientID {
			return nil, ErrInvalidRole
		}
		return PlayerConnection{SessionID: sessionID, ClientID: clientID}, nil
	default:
		return nil, ErrInvalidRole
	}
}

package game

import (
	"context"
	"fmt"

	"trivia-service/internal/models"
	"trivia-service/pkg/validator"
)

func (s *Session) onHostConnect(cmd Command) error {
	s.hostConnected = true
	s.toHost(Event{Type: EventHostConnected, Payload: HostConnectedPayload{
		SessionID: s.id,
		RoomCode:  s.roomCode,
		Phase:     s.phase,
	}})
	s.toHost(Event{Type: EventGameState, Payload: s.hostState()})
	return nil
}

func (s *Session) onHostDisconnect(cmd Command) error {
	s.hostConnected = false
	s.logger.Info().Msg("host disconnected")
	return nil
}

func (s *Session) onPlayerConnect(cmd Command) error {
	p := s.players[cmd.ClientID]
	if p == nil {
		s.deps.Emitter.ToPlayer(s.id, cmd.ClientID, Event{Type: EventPlayerConnected, Payload: PlayerConnectedPayload{
			SessionID: s.id,
			ClientID:  cmd.ClientID,
			Phase:     s.phase,
			NeedsJoin: true,
		}})
		return nil
	}
	s.restore(p)
	return nil
}

func (s *Session) onPlayerDisconnect(cmd Command) error {
	p := s.players[cmd.ClientID]
	if p == nil || !p.Connected {
		return nil
	}
	p.Connected = false
	s.logger.Info().Str("client_id", p.ClientID).Msg("player disconnected")
	s.toHost(Event{Type: EventPlayerStatus, Payload: s.rosterPayload(p)})
	s.checkAllAnswered()
	return nil
}

func (s *Session) onJoin(cmd Command) error {
	if p := s.players[cmd.ClientID]; p != nil {
		s.restore(p)
		return nil
	}

	nickname, err := validator.ValidateNickname(cmd.Nickname)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNickname, err)
	}
	for _, other := range s.players {
		if validator.SameNickname(other.Nickname, nickname) {
			return ErrNicknameTaken
		}
	}

	var email string
	if cmd.Email != "" {
		if err := validator.ValidateEmail(cmd.Email); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEmail, err)
		}
		email = validator.NormalizeEmail(cmd.Email)
	}

	s.joinSeq++
	p := &player{
		ClientID:  cmd.ClientID,
		Nickname:  nickname,
		Email:     email,
		Connected: true,
		seq:       s.joinSeq,
	}
	s.players[p.ClientID] = p

	s.logger.Info().Str("client_id", p.ClientID).Str("nickname", nickname).Msg("player joined")
	s.toPlayer(p, Event{Type: EventPlayerConnected, Payload: PlayerConnectedPayload{
		SessionID: s.id,
		ClientID:  p.ClientID,
		Phase:     s.phase,
		Nickname:  p.Nickname,
	}})
	s.toPlayer(p, Event{Type: EventGameState, Payload: s.playerState(p)})
	s.toHost(Event{Type: EventPlayerJoined, Payload: s.rosterPayload(p)})

	if email != "" {
		s.linkProfile(p)
	}
	return nil
}

func (s *Session) onLeave(cmd Command) error {
	p := s.players[cmd.ClientID]
	if p == nil {
		return ErrUnknownPlayer
	}

	view := s.playerView(p)
	s.toPlayer(p, Event{Type: EventPlayerLeft, Payload: RosterPayload{Player: view}})
	delete(s.players, p.ClientID)
	delete(s.roundCorrect, p.ClientID)
	delete(s.perfect, p.ClientID)

	s.logger.Info().Str("client_id", p.ClientID).Msg("player left")
	view.Connected = false
	s.toHost(Event{Type: EventPlayerLeft, Payload: RosterPayload{Player: view, Players: s.playerViews()}})
	s.checkAllAnswered()
	return nil
}

func (s *Session) rosterPayload(p *player) RosterPayload {
	return RosterPayload{Player: s.playerView(p), Players: s.playerViews()}
}

// linkProfile resolves the player's profile off the loop and re-enters the
// queue with the result.
func (s *Session) linkProfile(p *player) {
	if s.deps.Profiles == nil {
		return
	}

	clientID, email, nickname := p.ClientID, p.Email, p.Nickname
	go func() {
		var profile *models.PlayerProfile
		err := s.retry(func(ctx context.Context) error {
			var err error
			profile, err = s.deps.Profiles.EnsureProfile(ctx, email, nickname)
			return err
		})
		_ = s.post(func() { s.profileLinked(clientID, profile, err) })
	}()
}

func (s *Session) profileLinked(clientID string, profile *models.PlayerProfile, err error) {
	if err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("failed to link player profile")
		return
	}
	p := s.players[clientID]
	if p == nil || profile == nil {
		return
	}
	p.ProfileID = profile.ID
	s.toPlayer(p, Event{Type: EventProfileLinked, Payload: ProfileLinkedPayload{PlayerProfileID: profile.ID}})
}

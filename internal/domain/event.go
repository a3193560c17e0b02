package domain

import "time"

const (
	EventNamePlayerJoined       = "player.joined"
	EventNamePlayerLeft         = "player.left"
	EventNameMasterPromoted     = "master.promoted"
	EventNameRoundStarted       = "round.started"
	EventNameAnswerSubmitted    = "answer.submitted"
	EventNameRoundEnded         = "round.ended"
	EventNameScoreUpdated       = "score.updated"
	EventNameSessionReset       = "session.reset"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

type EventPlayerJoined struct {
	Player      PlayerView
	PlayerCount int
}

func (EventPlayerJoined) Name() string { return EventNamePlayerJoined }

type EventPlayerLeft struct {
	Player      PlayerView
	PlayerCount int
}

func (EventPlayerLeft) Name() string { return EventNamePlayerLeft }

type EventMasterPromoted struct {
	Player PlayerView
}

func (EventMasterPromoted) Name() string { return EventNameMasterPromoted }

type EventRoundStarted struct {
	Prompt      string
	PlayerCount int
}

func (EventRoundStarted) Name() string { return EventNameRoundStarted }

type EventAnswerSubmitted struct {
	PlayerID string
	Correct  bool
}

func (EventAnswerSubmitted) Name() string { return EventNameAnswerSubmitted }

type EventRoundEnded struct {
	Outcome Outcome
}

func (EventRoundEnded) Name() string { return EventNameRoundEnded }

type EventScoreUpdated struct {
	PlayerID   string
	PlayerName string
	Score      int
	UpdatedAt  time.Time
}

func (EventScoreUpdated) Name() string { return EventNameScoreUpdated }

type EventSessionReset struct{}

func (EventSessionReset) Name() string { return EventNameSessionReset }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }

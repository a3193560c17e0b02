package domain

import (
	"errors"
	"strings"
)

const DefaultPlayerName = "Player"

var ErrInvalidQuestion = errors.New("question and answer are required")

// Rules are the tunable parameters of a round.
type Rules struct {
	MinPlayers   int
	MaxAttempts  int
	RoundSeconds int
	WinPoints    int

	// RotateMaster hands the master role to the next player after every resolved round.
	RotateMaster bool
}

func DefaultRules() Rules {
	return Rules{
		MinPlayers:   3,
		MaxAttempts:  3,
		RoundSeconds: 60,
		WinPoints:    10,
	}
}

// AnswerResult is the verdict on a player's last submission.
type AnswerResult string

const (
	ResultCorrect AnswerResult = "correct"
	ResultWrong   AnswerResult = "wrong"
)

// Player is one connected participant.
type Player struct {
	ID           string
	Name         string
	IsMaster     bool
	Score        int
	AttemptsLeft int
	LastAnswer   *string
	LastResult   *AnswerResult
}

// NewPlayer creates a player. A blank name falls back to DefaultPlayerName.
func NewPlayer(id, name string, isMaster bool, attempts int) *Player {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPlayerName
	}

	return &Player{
		ID:           id,
		Name:         name,
		IsMaster:     isMaster,
		AttemptsLeft: attempts,
	}
}

// ResetForNewRound restores the per-round fields.
func (p *Player) ResetForNewRound(attempts int) {
	p.AttemptsLeft = attempts
	p.LastAnswer = nil
	p.LastResult = nil
}

// RecordAnswer stores a submission and its verdict. A wrong answer costs one attempt.
func (p *Player) RecordAnswer(answer string, correct bool) {
	result := ResultWrong
	if correct {
		result = ResultCorrect
	}

	p.LastAnswer = &answer
	p.LastResult = &result

	if !correct && p.AttemptsLeft > 0 {
		p.AttemptsLeft--
	}
}

func (p *Player) View() PlayerView {
	return PlayerView{
		ID:         p.ID,
		Name:       p.Name,
		Score:      p.Score,
		LastAnswer: p.LastAnswer,
		LastResult: p.LastResult,
		IsMaster:   p.IsMaster,
	}
}

// Question is the content of a round. It never changes once created.
type Question struct {
	prompt string
	answer string
}

func NewQuestion(prompt, answer string) (*Question, error) {
	answer = strings.TrimSpace(answer)
	if strings.TrimSpace(prompt) == "" || answer == "" {
		return nil, ErrInvalidQuestion
	}

	return &Question{prompt: prompt, answer: answer}, nil
}

func (q *Question) Prompt() string { return q.prompt }

func (q *Question) Answer() string { return q.answer }

// IsCorrect compares case-insensitively, ignoring surrounding whitespace.
func (q *Question) IsCorrect(submission string) bool {
	return strings.EqualFold(strings.TrimSpace(submission), q.answer)
}

// Reason tells how a round ended.
type Reason string

const (
	ReasonWin     Reason = "win"
	ReasonTimeout Reason = "timeout"
)

// Outcome is the result of a finished round.
type Outcome struct {
	WinnerID   *string `json:"winnerId"`
	WinnerName *string `json:"winnerName"`
	Answer     string  `json:"answer"`
	Reason     Reason  `json:"reason"`
}

// Leaderboard lists the players of the session sorted by score in descending order.
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/victornm/showdown/internal/clock"
	"github.com/victornm/showdown/internal/domain"
	"github.com/victornm/showdown/internal/errors"
	"github.com/victornm/showdown/internal/event"
)

type Config struct {
	EventBus   *event.Bus
	Dispatcher Dispatcher
	Clock      clockwork.Clock
	Rules      domain.Rules
}

// Service owns the single shared session. Every operation, including the countdown's ticks and
// timeout, runs under one lock, and the broadcasts it produces are handed to the dispatcher before
// the lock is released, so delivery order equals processing order.
type Service struct {
	eb         *event.Bus
	dispatcher Dispatcher
	clk        clockwork.Clock
	rules      domain.Rules

	mu         sync.Mutex
	players    map[string]*domain.Player
	order      []string
	masterID   string
	inProgress bool
	question   *domain.Question
	result     *domain.Outcome
	round      uint64
	timer      *clock.Clock

	pending []domain.Broadcast
	events  []event.Event
}

func NewService(c Config) *Service {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}

	return &Service{
		eb:         c.EventBus,
		dispatcher: c.Dispatcher,
		clk:        c.Clock,
		rules:      c.Rules,
		players:    make(map[string]*domain.Player),
		timer:      clock.New(c.Clock, c.Rules.RoundSeconds),
	}
}

// do runs fn as one atomic operation. A rejected operation produces no broadcasts.
func (s *Service) do(ctx context.Context, fn func() error) ([]domain.Broadcast, error) {
	s.mu.Lock()

	err := fn()
	out, events := s.pending, s.events
	s.pending, s.events = nil, nil

	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if len(out) > 0 && s.dispatcher != nil {
		s.dispatcher.Dispatch(out)
	}
	s.mu.Unlock()

	for _, e := range events {
		s.eb.Publish(ctx, e)
	}

	return out, nil
}

func (s *Service) emit(bs ...domain.Broadcast) {
	s.pending = append(s.pending, bs...)
}

func (s *Service) publish(e event.Event) {
	s.events = append(s.events, e)
}

func (s *Service) emitMessage(format string, args ...any) {
	s.emit(domain.MessageBroadcast(fmt.Sprintf(format, args...)))
}

func (s *Service) emitSnapshot() {
	s.emit(domain.PlayersBroadcast(s.playerViews()), domain.StateBroadcast(s.state()))
}

type JoinRequest struct {
	PlayerID    string
	Name        string
	WantsMaster bool
}

// Join adds a player to the roster. A duplicate id replaces the previous entry.
func (s *Service) Join(ctx context.Context, req JoinRequest) ([]domain.Broadcast, error) {
	return s.do(ctx, func() error {
		if req.PlayerID == "" {
			return errors.New(errors.CodeInvalidArgument, errors.WithMessage("Player id is required."))
		}

		if s.inProgress {
			return errors.New(errors.CodeFailedPrecondition,
				errors.WithMessage("Cannot join while a game is in progress."))
		}

		if req.WantsMaster && s.masterID != "" && s.masterID != req.PlayerID {
			return errors.New(errors.CodeAlreadyExists,
				errors.WithMessage("A game master already exists for this session."))
		}

		p := domain.NewPlayer(req.PlayerID, req.Name, req.WantsMaster, s.rules.MaxAttempts)
		if _, ok := s.players[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.players[p.ID] = p

		switch {
		case p.IsMaster:
			s.masterID = p.ID
		case s.masterID == p.ID:
			s.masterID = ""
		}

		s.emitSnapshot()
		s.emitMessage("%s joined the session.", p.Name)
		s.publish(domain.EventPlayerJoined{Player: p.View(), PlayerCount: len(s.players)})

		slog.InfoContext(ctx, "session: player joined",
			"player_id", p.ID,
			"name", p.Name,
			"master", p.IsMaster,
		)

		return nil
	})
}

// Leave removes a player. Unknown ids are ignored.
func (s *Service) Leave(ctx context.Context, playerID string) []domain.Broadcast {
	out, _ := s.do(ctx, func() error {
		p, ok := s.players[playerID]
		if !ok {
			return nil
		}

		delete(s.players, playerID)
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == playerID })
		s.publish(domain.EventPlayerLeft{Player: p.View(), PlayerCount: len(s.players)})

		if playerID == s.masterID {
			s.masterID = ""
			s.inProgress = false
			s.question = nil
			s.result = nil
			s.timer.Stop()
			s.emitMessage("Game master left. Session reset.")
			s.promoteMaster()
		} else {
			s.emitMessage("%s left the session.", p.Name)
		}

		if len(s.players) == 0 {
			s.reset()
			s.emitMessage("Session deleted (no players).")
			s.publish(domain.EventSessionReset{})
		}

		s.emitSnapshot()

		slog.InfoContext(ctx, "session: player left",
			"player_id", p.ID,
			"remaining", len(s.players),
		)

		return nil
	})

	return out
}

type SetQuestionRequest struct {
	PlayerID string
	Question string
	Answer   string
}

func (s *Service) SetQuestion(ctx context.Context, req SetQuestionRequest) ([]domain.Broadcast, error) {
	return s.do(ctx, func() error {
		if !s.isMaster(req.PlayerID) {
			return errors.New(errors.CodePermissionDenied,
				errors.WithMessage("Only the game master can post questions."))
		}

		if s.inProgress {
			return errors.New(errors.CodeFailedPrecondition,
				errors.WithMessage("Cannot change the question while a game is in progress."))
		}

		q, err := domain.NewQuestion(req.Question, req.Answer)
		if err != nil {
			return errors.New(errors.CodeInvalidArgument,
				errors.WithMessage("Question and answer are required."),
				errors.WithCause(err))
		}

		s.question = q
		s.result = nil

		s.emit(domain.StateBroadcast(s.state()))
		s.emitMessage("Question ready: %s", q.Prompt())

		return nil
	})
}

// StartRound starts the countdown of the current question.
func (s *Service) StartRound(ctx context.Context, playerID string) ([]domain.Broadcast, error) {
	return s.do(ctx, func() error {
		if !s.isMaster(playerID) {
			return errors.New(errors.CodePermissionDenied,
				errors.WithMessage("Only the game master can start the session."))
		}

		if len(s.players) < s.rules.MinPlayers {
			return errors.New(errors.CodeFailedPrecondition,
				errors.WithMessagef("Need at least %d players to start the session.", s.rules.MinPlayers))
		}

		if s.inProgress {
			return errors.New(errors.CodeFailedPrecondition, errors.WithMessage("Game already in progress."))
		}

		if s.question == nil {
			return errors.New(errors.CodeFailedPrecondition,
				errors.WithMessage("Set a question before starting the game."))
		}

		s.result = nil
		s.inProgress = true
		for _, p := range s.players {
			p.ResetForNewRound(s.rules.MaxAttempts)
		}
		s.timer.Stop()

		s.emit(domain.StateBroadcast(s.state()))
		s.emitMessage("Game started by the game master.")
		s.publish(domain.EventRoundStarted{Prompt: s.question.Prompt(), PlayerCount: len(s.players)})

		s.round++
		s.startClock(s.round)

		slog.InfoContext(ctx, "session: round started",
			"round", s.round,
			"players", len(s.players),
		)

		return nil
	})
}

// startClock must be called with the lock held. The first tick is part of the calling
// operation's output, later ticks and the timeout re-enter the session as operations of their own.
func (s *Service) startClock(round uint64) {
	first := true

	onTick := func(remaining int) {
		if first {
			first = false
			s.emit(domain.TimerBroadcast(remaining))
			return
		}

		_, _ = s.do(context.Background(), func() error {
			if s.round != round || !s.inProgress {
				return nil
			}

			s.emit(domain.TimerBroadcast(remaining))
			return nil
		})
	}

	onTimeout := func() {
		_, _ = s.do(context.Background(), func() error {
			if s.round != round || !s.inProgress || s.result != nil {
				return nil
			}

			s.endRound(domain.Outcome{
				Answer: s.question.Answer(),
				Reason: domain.ReasonTimeout,
			})
			return nil
		})
	}

	s.timer.Start(s.rules.RoundSeconds, onTick, onTimeout)
}

type SubmitAnswerRequest struct {
	PlayerID string
	Answer   string
}

// SubmitAnswer adjudicates a submission. The first correct submission processed wins the round,
// submissions that cannot count are ignored without any broadcast.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) []domain.Broadcast {
	out, _ := s.do(ctx, func() error {
		p, ok := s.players[req.PlayerID]
		if !ok || s.question == nil || !s.inProgress || s.result != nil || p.AttemptsLeft <= 0 {
			return nil
		}

		submitted := strings.TrimSpace(req.Answer)
		correct := s.question.IsCorrect(submitted)
		p.RecordAnswer(submitted, correct)
		s.publish(domain.EventAnswerSubmitted{PlayerID: p.ID, Correct: correct})

		if correct {
			p.Score += s.rules.WinPoints
			s.publish(domain.EventScoreUpdated{
				PlayerID:   p.ID,
				PlayerName: p.Name,
				Score:      p.Score,
				UpdatedAt:  s.clk.Now(),
			})

			id, name := p.ID, p.Name
			s.endRound(domain.Outcome{
				WinnerID:   &id,
				WinnerName: &name,
				Answer:     s.question.Answer(),
				Reason:     domain.ReasonWin,
			})
		}

		s.emit(domain.PlayersBroadcast(s.playerViews()))
		s.emit(domain.ReceiptBroadcast(p.ID, domain.AnswerReceipt{
			Correct:       correct,
			CorrectAnswer: s.question.Answer(),
			AttemptsLeft:  p.AttemptsLeft,
			GameOver:      s.result != nil,
		}))

		return nil
	})

	return out
}

func (s *Service) endRound(o domain.Outcome) {
	s.inProgress = false
	s.result = &o
	s.timer.Stop()

	s.emit(domain.StateBroadcast(s.state()))
	switch {
	case o.WinnerName != nil:
		s.emitMessage("%s got the correct answer!", *o.WinnerName)
	case o.Answer != "":
		s.emitMessage("Time is up! Correct answer: %s", o.Answer)
	default:
		s.emitMessage("Time is up!")
	}
	s.publish(domain.EventRoundEnded{Outcome: o})

	if s.rules.RotateMaster {
		s.promoteMaster()
	}
}

// promoteMaster hands the role to the first non-master player in join order.
func (s *Service) promoteMaster() {
	if len(s.players) == 0 {
		s.masterID = ""
		return
	}

	var next *domain.Player
	for _, id := range s.order {
		if p := s.players[id]; !p.IsMaster {
			next = p
			break
		}
	}
	if next == nil {
		next = s.players[s.order[0]]
	}

	if old, ok := s.players[s.masterID]; ok {
		old.IsMaster = false
	}

	s.masterID = next.ID
	next.IsMaster = true

	s.emitMessage("%s is now the Game Master.", next.Name)
	s.emitSnapshot()
	s.publish(domain.EventMasterPromoted{Player: next.View()})
}

func (s *Service) reset() {
	s.masterID = ""
	s.inProgress = false
	s.question = nil
	s.result = nil
	s.timer.Stop()
	s.timer = clock.New(s.clk, s.rules.RoundSeconds)
	s.order = nil
}

func (s *Service) isMaster(playerID string) bool {
	return s.masterID != "" && s.masterID == playerID
}

// State returns a snapshot of the session.
func (s *Service) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state()
}

// Players returns the roster in join order.
func (s *Service) Players() []domain.PlayerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.playerViews()
}

func (s *Service) state() domain.State {
	st := domain.State{
		InProgress:  s.inProgress,
		Players:     s.playerViews(),
		PlayerCount: len(s.players),
		HasMaster:   s.masterID != "",
		TimeLeft:    s.timer.Remaining(),
	}

	if s.question != nil {
		st.CurrentQuestion = &domain.QuestionView{Prompt: s.question.Prompt()}
	}

	if s.masterID != "" {
		id := s.masterID
		st.MasterID = &id
	}

	if s.result != nil {
		r := *s.result
		st.Result = &r
	}

	return st
}

func (s *Service) playerViews() []domain.PlayerView {
	views := make([]domain.PlayerView, 0, len(s.order))
	for _, id := range s.order {
		views = append(views, s.players[id].View())
	}

	return views
}

// Close stops the countdown. Pending ticks and timeouts are discarded.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.round++
	s.timer.Stop()
}

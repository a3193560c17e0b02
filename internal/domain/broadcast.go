package domain

type BroadcastKind string

const (
	KindGameState     BroadcastKind = "game:state"
	KindPlayersUpdate BroadcastKind = "players:update"
	KindSystemMessage BroadcastKind = "system:message"
	KindTimerUpdate   BroadcastKind = "timer:update"
	KindAnswerResult  BroadcastKind = "answer:result"
)

// Broadcast is a notification produced by the session for the transports to deliver.
// An empty To means every connection, otherwise only the connection of that player.
type Broadcast struct {
	Kind BroadcastKind
	To   string
	Data any
}

func (b Broadcast) Private() bool { return b.To != "" }

func StateBroadcast(s State) Broadcast {
	return Broadcast{Kind: KindGameState, Data: s}
}

func PlayersBroadcast(players []PlayerView) Broadcast {
	return Broadcast{Kind: KindPlayersUpdate, Data: players}
}

func MessageBroadcast(msg string) Broadcast {
	return Broadcast{Kind: KindSystemMessage, Data: msg}
}

func TimerBroadcast(remaining int) Broadcast {
	return Broadcast{Kind: KindTimerUpdate, Data: remaining}
}

func ReceiptBroadcast(playerID string, r AnswerReceipt) Broadcast {
	return Broadcast{Kind: KindAnswerResult, To: playerID, Data: r}
}

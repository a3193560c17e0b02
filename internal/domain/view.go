package domain

// State is the full snapshot of the session shown to every connection.
type State struct {
	InProgress      bool          `json:"inProgress"`
	CurrentQuestion *QuestionView `json:"currentQuestion"`
	Players         []PlayerView  `json:"players"`
	PlayerCount     int           `json:"playerCount"`
	HasMaster       bool          `json:"hasMaster"`
	TimeLeft        int           `json:"timeLeft"`
	MasterID        *string       `json:"masterId"`
	Result          *Outcome      `json:"result"`
}

// QuestionView never carries the answer.
type QuestionView struct {
	Prompt string `json:"prompt"`
}

type PlayerView struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Score      int           `json:"score"`
	LastAnswer *string       `json:"lastAnswer"`
	LastResult *AnswerResult `json:"lastResult"`
	IsMaster   bool          `json:"isMaster"`
}

// AnswerReceipt is the private result sent to the submitter of an answer.
type AnswerReceipt struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	AttemptsLeft  int    `json:"attemptsLeft"`
	GameOver      bool   `json:"gameOver"`
}

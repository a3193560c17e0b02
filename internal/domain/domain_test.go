package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/showdown/internal/domain"
)

func TestNewPlayer(t *testing.T) {
	tests := map[string]struct {
		name string
		want string
	}{
		"keeps name":         {name: "Alice", want: "Alice"},
		"trims name":         {name: "  Bob ", want: "Bob"},
		"blank name default": {name: "   ", want: domain.DefaultPlayerName},
		"empty name default": {name: "", want: domain.DefaultPlayerName},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p := domain.NewPlayer("p1", tt.name, false, 3)
			assert.Equal(t, tt.want, p.Name)
			assert.Equal(t, 3, p.AttemptsLeft)
			assert.Zero(t, p.Score)
		})
	}
}

func TestPlayer_RecordAnswer(t *testing.T) {
	p := domain.NewPlayer("p1", "Alice", false, 3)

	for _, want := range []int{2, 1, 0, 0} {
		p.RecordAnswer("Pariss", false)
		require.Equal(t, want, p.AttemptsLeft, "attempts never go below zero")
	}

	require.NotNil(t, p.LastResult)
	assert.Equal(t, domain.ResultWrong, *p.LastResult)
	assert.Equal(t, "Pariss", *p.LastAnswer)

	p.ResetForNewRound(3)
	assert.Equal(t, 3, p.AttemptsLeft)
	assert.Nil(t, p.LastAnswer)
	assert.Nil(t, p.LastResult)

	p.RecordAnswer("Paris", true)
	assert.Equal(t, 3, p.AttemptsLeft, "a correct answer costs nothing")
	assert.Equal(t, domain.ResultCorrect, *p.LastResult)
}

func TestNewQuestion(t *testing.T) {
	tests := map[string]struct {
		prompt, answer string
		wantErr        bool
	}{
		"valid":        {prompt: "Capital of France?", answer: "Paris"},
		"empty prompt": {prompt: "", answer: "Paris", wantErr: true},
		"blank prompt": {prompt: "  ", answer: "Paris", wantErr: true},
		"empty answer": {prompt: "Capital of France?", answer: "", wantErr: true},
		"blank answer": {prompt: "Capital of France?", answer: " \t ", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			q, err := domain.NewQuestion(tt.prompt, tt.answer)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidQuestion)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.prompt, q.Prompt())
		})
	}
}

func TestQuestion_IsCorrect(t *testing.T) {
	q, err := domain.NewQuestion("Capital of France?", "  Paris ")
	require.NoError(t, err)
	require.Equal(t, "Paris", q.Answer(), "answer is stored trimmed")

	for _, s := range []string{"paris", " Paris ", "PARIS", "Paris"} {
		assert.True(t, q.IsCorrect(s), s)
	}

	for _, s := range []string{"Pariss", "", "Par is"} {
		assert.False(t, q.IsCorrect(s), s)
	}
}

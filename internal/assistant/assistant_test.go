package assistant_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/assistant"
)

type mockCompleter struct {
	reply  string
	err    error
	delay  time.Duration
	prompt string
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompt = prompt
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.reply, m.err
}

func (m *mockCompleter) Name() string { return "mock" }

func TestService_Complete(t *testing.T) {
	c := &mockCompleter{reply: "Take the train."}
	svc := assistant.NewService(assistant.ServiceConfig{Completer: c, Logger: zerolog.Nop()})

	text, err := svc.Complete(context.Background(), "  How do I get to Utrecht?  ")
	require.NoError(t, err)
	assert.Equal(t, "Take the train.", text)
	assert.Equal(t, "How do I get to Utrecht?", c.prompt)
	assert.True(t, svc.Configured())
}

func TestService_Complete_NotConfigured(t *testing.T) {
	svc := assistant.NewService(assistant.ServiceConfig{Logger: zerolog.Nop()})

	_, err := svc.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, assistant.ErrNotConfigured)
	assert.False(t, svc.Configured())
}

func TestService_Complete_Validation(t *testing.T) {
	svc := assistant.NewService(assistant.ServiceConfig{
		Completer:       &mockCompleter{reply: "x"},
		Logger:          zerolog.Nop(),
		MaxPromptLength: 10,
	})

	_, err := svc.Complete(context.Background(), "   ")
	assert.ErrorIs(t, err, assistant.ErrEmptyPrompt)

	_, err = svc.Complete(context.Background(), strings.Repeat("a", 11))
	assert.ErrorIs(t, err, assistant.ErrPromptTooLong)
}

func TestService_Complete_ProviderError(t *testing.T) {
	svc := assistant.NewService(assistant.ServiceConfig{
		Completer: &mockCompleter{err: errors.New("quota exceeded")},
		Logger:    zerolog.Nop(),
	})

	_, err := svc.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, assistant.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestService_Complete_EmptyCompletion(t *testing.T) {
	svc := assistant.NewService(assistant.ServiceConfig{
		Completer: &mockCompleter{err: assistant.ErrEmptyCompletion},
		Logger:    zerolog.Nop(),
	})

	_, err := svc.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, assistant.ErrEmptyCompletion)
	assert.NotErrorIs(t, err, assistant.ErrProviderUnavailable)
}

func TestService_Complete_Timeout(t *testing.T) {
	svc := assistant.NewService(assistant.ServiceConfig{
		Completer: &mockCompleter{reply: "late", delay: time.Second},
		Logger:    zerolog.Nop(),
		Timeout:   20 * time.Millisecond,
	})

	_, err := svc.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, assistant.ErrProviderUnavailable)
}

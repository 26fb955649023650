// Package assistant answers free-form travel questions through an LLM.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Assistant errors.
var (
	ErrNotConfigured       = errors.New("assistant not configured")
	ErrEmptyPrompt         = errors.New("empty prompt")
	ErrPromptTooLong       = errors.New("prompt too long")
	ErrProviderUnavailable = errors.New("assistant provider unavailable")
	ErrEmptyCompletion     = errors.New("provider returned no completion")
)

// Completer generates text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ServiceConfig holds configuration for the assistant service.
type ServiceConfig struct {
	// Completer is the LLM backend. A nil Completer makes every call
	// return ErrNotConfigured.
	Completer Completer

	// Logger for service operations.
	Logger zerolog.Logger

	// Timeout bounds a single completion (default: 30 seconds).
	Timeout time.Duration

	// MaxPromptLength caps the prompt in bytes (default: 8000).
	MaxPromptLength int
}

// Service validates prompts and forwards them to the completer.
type Service struct {
	completer Completer
	logger    zerolog.Logger
	timeout   time.Duration
	maxPrompt int
}

// NewService creates a new assistant service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxPrompt := cfg.MaxPromptLength
	if maxPrompt <= 0 {
		maxPrompt = 8000
	}

	return &Service{
		completer: cfg.Completer,
		logger:    cfg.Logger,
		timeout:   timeout,
		maxPrompt: maxPrompt,
	}
}

// Configured reports whether a completer is wired.
func (s *Service) Configured() bool {
	return s.completer != nil
}

// Complete returns the completion for prompt.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	if s.completer == nil {
		return "", ErrNotConfigured
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if len(prompt) > s.maxPrompt {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrPromptTooLong, len(prompt), s.maxPrompt)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", s.completer.Name()).
			Dur("duration", time.Since(start)).
			Msg("completion failed")
		if errors.Is(err, ErrEmptyCompletion) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	s.logger.Debug().
		Str("provider", s.completer.Name()).
		Int("prompt_bytes", len(prompt)).
		Int("completion_bytes", len(text)).
		Dur("duration", time.Since(start)).
		Msg("completion served")

	return text, nil
}

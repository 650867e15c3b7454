package service

import (
	"context"
	"strings"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/assets"
	"github.com/chatcut/chatcut/internal/auth"
	"github.com/rs/zerolog/log"
)

// questionWindow is how many trailing messages are sent with a question.
const questionWindow = 10

// FallbackAnswer is returned when no answer can be produced.
const FallbackAnswer = "I'm not sure. Can you rephrase?"

// Answer is the reply to an editing-help question.
type Answer struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// AskQuestion answers an editing-help conversation using the last few
// messages. Providers that cannot chat get the fallback answer.
func (s *Service) AskQuestion(ctx context.Context, messages []ai.Message) Answer {
	history := ai.LastMessages(messages, questionWindow)
	if len(history) == 0 {
		return Answer{Message: "Ask me anything about editing your video.", Error: action.CodeNeedsSpecification}
	}
	if ai.IsUnknown(s.provider) {
		return Answer{Message: FallbackAnswer, Error: action.CodeUnknownProvider}
	}

	answerer, ok := s.provider.(ai.Answerer)
	if !ok {
		return Answer{Message: FallbackAnswer}
	}

	text, err := answerer.Answer(ctx, assets.HelpSystemPrompt, history)
	if err != nil {
		code := auth.Classify(err).Code()
		log.Error().Err(err).Str("provider", s.provider.Name()).Str("code", code).Msg("Question answering failed")
		return Answer{Message: FallbackAnswer, Error: code}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = FallbackAnswer
	}
	return Answer{Message: text}
}

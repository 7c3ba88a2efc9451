// Package naturebot is the in-app nature assistant: input validation and
// one completion call per question.
package naturebot

import (
	"context"
	"errors"
	"log"
	"strings"

	"verdant/api/internal/openai"
)

// Messages shown to the user. The API-key variant is distinguished from the
// generic failure so a misconfigured deployment is recognizable.
const (
	MsgEmptyQuestion  = "Please ask a question"
	MsgTooShort       = "Your question is too short. Please ask something more specific."
	MsgTooLong        = "Your question is too long. Please limit it to 200 characters."
	MsgOffline        = "You are offline. Please check your internet connection."
	MsgNeedAPIKey     = "Hello user, you need an API key in order to talk to me!"
	MsgGenericFailure = "Oops, something went wrong! Please try again later"
	MsgEmptyResponse  = "Sorry, we couldn't fetch a response right now."
)

const (
	botPersona = "You are a friendly nature expert acting as an AI bot inside a nature mobile app, be friendly and energetic please"
	botRules   = "<RULE>ENSURE THE FOLLOWING QUESTION IS ABOUT NATURE, IF NOT THEN TELL THEM YOU CANNOT ASSIST IF NOT NATURE RELATED</RULE>" +
		"<RULE>IF THE USER ASKS ABOUT HOW TO USE THE APP THEN DESCRIBE THE FOLLOWING:this is a plant care social media where users can store their real life plants and meet new friends in the global nature feed, users can also interact with an AI chatbot which disscusses nature related topics, i am that robot helloo!! finally users can customise their profile and accessibilty options</RULE>"
	botTokens = 500
)

// Completer is the slice of the completion client the bot needs.
type Completer interface {
	Complete(ctx context.Context, messages []openai.ChatMessage, maxTokens int) (string, error)
}

type Service struct {
	client Completer
}

func NewService(client Completer) *Service {
	return &Service{client: client}
}

// ValidateInput checks a question before any network call. Checks apply in
// priority order: empty, too short, too long, offline. The returned message
// is empty when the input is valid.
func ValidateInput(question string, online bool) (bool, string) {
	switch {
	case strings.TrimSpace(question) == "":
		return false, MsgEmptyQuestion
	case len([]rune(question)) < 3:
		return false, MsgTooShort
	case len([]rune(question)) > 200:
		return false, MsgTooLong
	case !online:
		return false, MsgOffline
	}
	return true, ""
}

// Ask issues one completion request and returns the text to display. Every
// failure mode degrades to a message, never an error: missing credentials,
// other upstream failures, and transport problems each get their variant.
func (s *Service) Ask(ctx context.Context, question string) string {
	answer, err := s.client.Complete(ctx, []openai.ChatMessage{
		{Role: "system", Content: botPersona},
		{Role: "user", Content: botRules + "<USERQUESTION>" + question + "</USERQUESTION>"},
	}, botTokens)

	if err != nil {
		var statusErr *openai.StatusError
		switch {
		case errors.Is(err, openai.ErrUnauthorized):
			log.Printf("naturebot: completion unauthorized: %v", err)
			return MsgNeedAPIKey
		case errors.As(err, &statusErr):
			log.Printf("naturebot: completion status %d: %v", statusErr.Code, err)
			return MsgGenericFailure
		default:
			log.Printf("naturebot: completion failed: %v", err)
			return "Failed to fetch response: " + err.Error()
		}
	}

	if answer == "" {
		log.Printf("naturebot: completion response was empty")
		return MsgEmptyResponse
	}
	return answer
}

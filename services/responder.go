// services/responder.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voltflow-backend/metrics"
	"voltflow-backend/models"

	openai "github.com/sashabaranov/go-openai"
)

const historyLimit = 5

var ErrNoCompletion = errors.New("completion returned no choices")

const (
	genericSystemPrompt   = "You are a helpful Aussie trades assistant. Keep things short, casual, and ask for name + location to follow up."
	voicemailSystemPrompt = "You are a helpful Aussie tradie assistant replying by SMS to a voicemail the customer left. " +
		"Keep it short and friendly, and offer a quote, job booking or callback."
)

var tonePrompts = map[string]string{
	"electrician": "You are a casual, friendly Aussie sparky assistant. Keep replies short and helpful. Suggest a quote, job booking or callback.",
	"plumber":     "You are a casual, friendly Aussie plumbing assistant. Keep replies short and helpful. Suggest a quote, job booking or callback.",
	"carpenter":   "You are a casual, friendly Aussie carpentry assistant. Keep replies short and helpful. Suggest a quote, job booking or callback.",
}

var fewShotExamples = map[string][]openai.ChatCompletionMessage{
	"electrician": {
		{Role: openai.ChatMessageRoleUser, Content: "Hi mate, I need a fan installed."},
		{Role: openai.ChatMessageRoleAssistant, Content: "No worries! I can get that booked in. Can you send through your name and suburb?"},
		{Role: openai.ChatMessageRoleUser, Content: "What’s the price for downlights?"},
		{Role: openai.ChatMessageRoleAssistant, Content: "Prices vary a bit, but I can sort a quick quote. Mind letting me know how many lights and where you’re based?"},
	},
	"plumber": {
		{Role: openai.ChatMessageRoleUser, Content: "Pipe’s leaking under the sink."},
		{Role: openai.ChatMessageRoleAssistant, Content: "Yikes! Let’s get that sorted quick. Can you send me your name + where you’re located?"},
	},
	"carpenter": {
		{Role: openai.ChatMessageRoleUser, Content: "Can you build a deck?"},
		{Role: openai.ChatMessageRoleAssistant, Content: "Absolutely. Just need your name and suburb to give you a proper quote."},
	},
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Responder produces free-form replies with the chat completion API
type Responder struct {
	client   chatClient
	store    Store
	model    string
	category string
}

func NewResponder(client chatClient, store Store, model, category string) *Responder {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &Responder{client: client, store: store, model: model, category: strings.ToLower(category)}
}

// Reply answers text using the trade persona and the last few logged
// exchanges for phone. The first choice is returned verbatim.
func (r *Responder) Reply(ctx context.Context, phone, text string) (string, error) {
	history, err := r.store.RecentMessages(ctx, phone, historyLimit)
	if err != nil {
		return "", err
	}
	return r.complete(ctx, r.buildMessages(history, text))
}

// VoicemailReply answers a voicemail transcript with no conversation history
func (r *Responder) VoicemailReply(ctx context.Context, transcript string) (string, error) {
	reply, err := r.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: voicemailSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: transcript},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// buildMessages expects history newest first, as the store returns it
func (r *Responder) buildMessages(history []models.Message, text string) []openai.ChatCompletionMessage {
	system, ok := tonePrompts[r.category]
	if !ok {
		system = genericSystemPrompt
	}

	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: system}}
	msgs = append(msgs, fewShotExamples[r.category]...)

	for i := len(history) - 1; i >= 0; i-- {
		if in := history[i].Incoming; in != "" {
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: in})
		}
		if out := history[i].Outgoing; out != "" {
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: out})
		}
	}

	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: strings.TrimSpace(text)})
}

func (r *Responder) complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: msgs,
	})
	metrics.RecordCompletion(r.model, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

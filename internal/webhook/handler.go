// Package webhook receives LINE webhook events and drives the timetable
// dialog. The webhook endpoint acknowledges immediately and processes
// events asynchronously; replies go out through the Messaging API.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/uitmtimetable/icress-linebot-go/internal/bot"
	"github.com/uitmtimetable/icress-linebot-go/internal/logger"
)

// Commands the bot understands outside a dialog.
const (
	commandStart    = "/start"
	commandGenerate = "/generate"
)

// Recorder receives one observation per processed webhook event.
// Implemented by the metrics package; nil disables recording.
type Recorder interface {
	RecordWebhookEvent(eventType string, status string, duration time.Duration)
}

// Handler handles LINE webhook events.
type Handler struct {
	channelSecret string
	client        *messaging_api.MessagingApiAPI
	engine        *bot.Engine
	log           *logger.Logger
	recorder      Recorder
	wg            sync.WaitGroup
}

// NewHandler creates a webhook handler speaking to the LINE Messaging API
// with the given channel credentials.
func NewHandler(channelSecret, channelToken string, engine *bot.Engine, log *logger.Logger) (*Handler, error) {
	client, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}

	return &Handler{
		channelSecret: channelSecret,
		client:        client,
		engine:        engine,
		log:           log.WithModule("webhook"),
	}, nil
}

// SetRecorder attaches a metrics recorder. Safe to leave unset.
func (h *Handler) SetRecorder(r Recorder) {
	h.recorder = r
}

// Handle is the Gin handler for the webhook endpoint. It validates the
// signature, acknowledges with 200 right away, and hands the events to a
// background goroutine; LINE retries the whole batch on slow responses.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.log.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.log.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusOK)

	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.log.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		ctx := context.Background()
		for _, event := range events {
			h.processEvent(ctx, event)
		}
	})
}

// processEvent handles one webhook event. Only text messages and follow
// events produce replies; everything else is skipped.
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()

	var (
		eventType  string
		replyToken string
		messages   []messaging_api.MessageInterface
		err        error
	)

	switch e := event.(type) {
	case webhook.FollowEvent:
		eventType = "follow"
		replyToken = e.ReplyToken
		messages = []messaging_api.MessageInterface{newTextMessage(bot.MsgIntro)}
	case webhook.MessageEvent:
		eventType = "message"
		replyToken = e.ReplyToken
		messages, err = h.processMessage(ctx, e)
	default:
		return
	}

	status := "success"
	if err != nil {
		status = "error"
		h.log.WithError(err).WithField("event_type", eventType).Error("Failed to handle event")
	}
	h.record(eventType, status, time.Since(start))

	if err != nil || len(messages) == 0 || replyToken == "" {
		return
	}

	if _, err := h.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	}); err != nil {
		if strings.Contains(err.Error(), "Invalid reply token") {
			h.log.WithError(err).Debug("Reply token already used or invalid")
		} else {
			h.log.WithError(err).Error("Failed to send reply")
		}
		h.record(eventType, "reply_error", time.Since(start))
	}
}

// processMessage routes one text message. Inside a dialog every message is
// an answer to the current step; outside one, only the commands respond,
// so the bot stays quiet in group chats.
func (h *Handler) processMessage(ctx context.Context, e webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	textMsg, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		return nil, nil
	}

	chatID := chatIDFromSource(e.Source)
	if chatID == "" {
		return nil, nil
	}

	text := strings.TrimSpace(textMsg.Text)

	switch strings.ToLower(text) {
	case commandStart:
		return []messaging_api.MessageInterface{newTextMessage(bot.MsgIntro)}, nil
	case commandGenerate:
		h.showLoadingAnimation(e.Source)
		result, err := h.engine.Start(ctx, chatID)
		if err != nil {
			return nil, err
		}
		return resultMessages(result), nil
	}

	inDialog, err := h.engine.HasSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !inDialog {
		return nil, nil
	}

	h.showLoadingAnimation(e.Source)
	result, err := h.engine.Handle(ctx, chatID, text)
	if err != nil {
		return nil, err
	}
	return resultMessages(result), nil
}

// showLoadingAnimation shows the typing indicator in one-on-one chats.
// Best effort; failures only get logged.
func (h *Handler) showLoadingAnimation(source webhook.SourceInterface) {
	user, ok := source.(webhook.UserSource)
	if !ok {
		return
	}

	if _, err := h.client.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         user.UserId,
		LoadingSeconds: 30,
	}); err != nil {
		h.log.WithError(err).Debug("Failed to show loading animation")
	}
}

func (h *Handler) record(eventType, status string, duration time.Duration) {
	if h.recorder != nil {
		h.recorder.RecordWebhookEvent(eventType, status, duration)
	}
}

// chatIDFromSource extracts the id the dialog is keyed by. Group and room
// chats use the group id so members share one dialog.
func chatIDFromSource(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	default:
		return ""
	}
}

// Shutdown waits for in-flight event processing to finish or the context
// to expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

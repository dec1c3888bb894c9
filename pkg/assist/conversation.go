// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assist

import (
	"context"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Conversation States
// =============================================================================

// State is the conversation lifecycle phase. Only Idle and Failed accept
// a new message; Sending, Streaming, and Finalizing reject reentry so a
// double-tap cannot launch two exchanges.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateFinalizing
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// placeholderContent is shown on the assistant message while the first
// fragment is in flight.
const placeholderContent = "Thinking..."

// failureContent replaces the placeholder when an exchange fails. The
// wording is fixed; raw transport errors never reach the chat surface.
const failureContent = "Sorry, something went wrong while answering. Please try again."

// =============================================================================
// Conversation
// =============================================================================

// Conversation is the view model behind a job chat surface. It owns the
// visible message list, tracks conversation continuity across sends, and
// runs exchanges asynchronously against a Transport.
//
// All exported methods are safe for concurrent use. The onChange callback
// fires after every visible mutation, without the internal lock held, so
// observers may call accessors freely.
type Conversation struct {
	mu        sync.Mutex
	transport Transport
	jobID     string
	onChange  func()

	conversationID string
	messages       []Message
	followUps      []string
	state          State

	// placeholder indexes the in-flight assistant message; -1 when no
	// exchange is running.
	placeholder int
	gotDelta    bool
	cancel      context.CancelFunc
}

// NewConversation creates a conversation bound to one job. onChange may
// be nil for callers that poll instead of observing.
func NewConversation(transport Transport, jobID string, onChange func()) *Conversation {
	return &Conversation{
		transport:   transport,
		jobID:       jobID,
		onChange:    onChange,
		state:       StateIdle,
		placeholder: -1,
	}
}

// State returns the current lifecycle phase.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConversationID returns the server-assigned conversation identifier,
// or "" before the first completed exchange.
func (c *Conversation) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Messages returns a copy of the visible message list.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// FollowUps returns the suggested follow-up questions from the most
// recent completed exchange.
func (c *Conversation) FollowUps() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.followUps))
	copy(out, c.followUps)
	return out
}

// SendMessage starts an exchange for the given text. It is a silent
// no-op when the text is blank, no job is bound, or an exchange is
// already running. A failed conversation accepts a retry.
func (c *Conversation) SendMessage(text string) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if text == "" || c.jobID == "" || (c.state != StateIdle && c.state != StateFailed) {
		c.mu.Unlock()
		return
	}

	now := time.Now()
	c.messages = append(c.messages,
		Message{Role: RoleUser, Content: text, CreatedAt: now},
		Message{Role: RoleAssistant, Content: placeholderContent, IsLoading: true, CreatedAt: now},
	)
	c.placeholder = len(c.messages) - 1
	c.gotDelta = false
	c.state = StateSending

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	req := ChatRequest{Message: text, ConversationID: c.conversationID, Stream: true}
	c.mu.Unlock()

	c.notify()
	go c.run(ctx, req)
}

// run drives one exchange to completion.
func (c *Conversation) run(ctx context.Context, req ChatRequest) {
	payload, err := c.transport.StreamMessage(ctx, c.jobID, req, c.applyDelta)
	if err != nil {
		c.fail()
		return
	}
	c.finalize(payload)
}

// applyDelta folds one fragment into the in-flight assistant message.
// The first fragment replaces the placeholder; the rest append.
func (c *Conversation) applyDelta(delta string) {
	c.mu.Lock()
	if c.placeholder < 0 || c.placeholder >= len(c.messages) {
		c.mu.Unlock()
		return
	}
	if c.state == StateSending {
		c.state = StateStreaming
	}
	msg := &c.messages[c.placeholder]
	if !c.gotDelta {
		msg.Content = delta
		msg.IsLoading = false
		c.gotDelta = true
	} else {
		msg.Content += delta
	}
	c.mu.Unlock()
	c.notify()
}

// finalize applies the terminal payload. Streamed content is kept as-is
// when fragments arrived; otherwise the payload's answer fills the
// placeholder. Evidence is preferred over citations for display.
func (c *Conversation) finalize(payload *ChatPayload) {
	c.mu.Lock()
	if c.placeholder < 0 {
		c.mu.Unlock()
		return
	}
	c.state = StateFinalizing

	if c.placeholder < len(c.messages) {
		msg := &c.messages[c.placeholder]
		if !c.gotDelta {
			msg.Content = payload.Answer
		}
		msg.IsLoading = false
		if len(payload.Evidence) > 0 {
			msg.Sources = payload.Evidence
		} else {
			msg.Sources = payload.Citations
		}
	}

	// Continuity: never clobber an established id with an empty one.
	if payload.ConversationID != "" {
		c.conversationID = payload.ConversationID
	}
	c.followUps = payload.FollowUps

	c.placeholder = -1
	c.cancel = nil
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
}

// fail replaces the placeholder with the fixed failure message.
func (c *Conversation) fail() {
	c.mu.Lock()
	if c.placeholder < 0 {
		c.mu.Unlock()
		return
	}
	if c.placeholder < len(c.messages) {
		msg := &c.messages[c.placeholder]
		msg.Content = failureContent
		msg.IsLoading = false
	}

	c.placeholder = -1
	c.cancel = nil
	c.state = StateFailed
	c.mu.Unlock()
	c.notify()
}

// Restore loads persisted history into the message list, replacing any
// local state. It refuses to run while an exchange is in flight, and
// yields silently to a send that started while the fetch was underway.
func (c *Conversation) Restore(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateFailed {
		c.mu.Unlock()
		return nil
	}
	jobID := c.jobID
	c.mu.Unlock()

	history, err := c.transport.History(ctx, jobID)
	if err != nil {
		return err
	}

	messages := make([]Message, 0, len(history.Messages))
	for _, turn := range history.Messages {
		messages = append(messages, Message{
			Role:      turn.Role,
			Content:   turn.Content,
			Sources:   decodeTurnSources(turn.MetadataJSON),
			CreatedAt: turn.CreatedAt,
		})
	}

	c.mu.Lock()
	// The fetch blocked without the lock held. If a send slipped in
	// meanwhile, the live exchange wins: swapping the list now would
	// orphan its placeholder.
	if c.placeholder >= 0 || (c.state != StateIdle && c.state != StateFailed) {
		c.mu.Unlock()
		return nil
	}
	c.messages = messages
	if history.ConversationID != "" {
		c.conversationID = history.ConversationID
	}
	c.followUps = nil
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
	return nil
}

// Close cancels any in-flight exchange. The canceled exchange surfaces
// as a failed message; the conversation remains usable.
func (c *Conversation) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Conversation) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

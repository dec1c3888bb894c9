// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/schradermade/hvac-ai-sub000/pkg/assist"
)

var (
	jobID   string
	offline bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat about one job",
	Run:   runChatCommand,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "One-shot question about a job",
	Args:  cobra.MinimumNArgs(1),
	Run:   runAskCommand,
}

func init() {
	for _, cmd := range []*cobra.Command{chatCmd, askCmd} {
		cmd.Flags().StringVar(&jobID, "job", "", "job identifier (required)")
		cmd.Flags().BoolVar(&offline, "offline", false, "use the canned responder, no server")
		_ = cmd.MarkFlagRequired("job")
		rootCmd.AddCommand(cmd)
	}
}

// newTransport picks the backend from flags and config. The --offline
// flag forces the built-in responder; an empty server URL routes there
// as well.
func newTransport() assist.Transport {
	if offline || config.Offline {
		fmt.Println("(offline mode: answers come from the built-in responder)")
		return assist.MockTransport{}
	}
	transport := assist.SelectTransport(assist.HTTPConfig{
		BaseURL: config.Server,
		Token:   config.Token,
		Tenant:  config.Tenant,
		User:    config.User,
	})
	if _, ok := transport.(assist.MockTransport); ok {
		fmt.Println("(no server configured: answers come from the built-in responder)")
	}
	return transport
}

// turnPrinter renders the in-flight assistant message incrementally.
// It tracks how much of the latest assistant content has been printed
// and emits only the unseen suffix on each change.
type turnPrinter struct {
	conv    *assist.Conversation
	mu      sync.Mutex
	printed int
	done    chan struct{}
}

func (p *turnPrinter) reset() {
	p.mu.Lock()
	p.printed = 0
	p.mu.Unlock()
}

func (p *turnPrinter) onChange() {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := p.conv.Messages()
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		if last.Role == assist.RoleAssistant && !last.IsLoading && len(last.Content) > p.printed {
			fmt.Print(last.Content[p.printed:])
			p.printed = len(last.Content)
		}
	}

	switch p.conv.State() {
	case assist.StateIdle, assist.StateFailed:
		select {
		case p.done <- struct{}{}:
		default:
		}
	}
}

func runChatCommand(cmd *cobra.Command, args []string) {
	transport := newTransport()

	printer := &turnPrinter{done: make(chan struct{}, 1)}
	conv := assist.NewConversation(transport, jobID, printer.onChange)
	printer.conv = conv
	defer conv.Close()

	if err := conv.Restore(context.Background()); err != nil {
		log.Printf("Could not restore history: %v", err)
	}
	if msgs := conv.Messages(); len(msgs) > 0 {
		fmt.Printf("(restored %d earlier messages)\n", len(msgs))
	}

	fmt.Printf("Chatting about job %s. Type 'exit' to quit.\n", jobID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}

		printer.reset()
		conv.SendMessage(line)
		<-printer.done
		fmt.Println()

		printSources(lastAssistantSources(conv))
		printFollowUps(conv.FollowUps())
	}
}

func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	transport := newTransport()

	payload, err := transport.SendMessage(context.Background(), jobID, assist.ChatRequest{Message: question})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("\n%s\n", payload.Answer)
	sources := payload.Evidence
	if len(sources) == 0 {
		sources = payload.Citations
	}
	printSources(sources)
	printFollowUps(payload.FollowUps)
}

func lastAssistantSources(conv *assist.Conversation) []assist.SourceInfo {
	msgs := conv.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == assist.RoleAssistant {
			return msgs[i].Sources
		}
	}
	return nil
}

func printSources(sources []assist.SourceInfo) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for i, s := range sources {
		line := s.DocID
		if s.Date != "" {
			line += " (" + s.Date + ")"
		}
		if excerpt := s.Excerpt(); excerpt != "" {
			line += ": " + excerpt
		}
		fmt.Printf("%d. %s\n", i+1, line)
	}
}

func printFollowUps(followUps []string) {
	if len(followUps) == 0 {
		return
	}
	fmt.Println("\nYou could also ask:")
	for _, q := range followUps {
		fmt.Printf("  - %s\n", q)
	}
}

package cmd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"prema-client/internal/chat"
	"prema-client/internal/format"
	"prema-client/internal/models"
	"prema-client/internal/realtime"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newConversationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			inbox := chat.NewInbox(a.client, a.session)
			convs, err := inbox.Load(ctx)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				a.printf("No conversations yet\n")
				return nil
			}

			now := time.Now()
			for _, c := range convs {
				line := "[" + format.Initials(c.UserName) + "] " + c.UserName
				if c.LastMessageTime != nil {
					line += " · " + format.ConversationTime(c.LastMessageTime.Time, now)
				}
				if badge := format.UnreadBadge(c.UnreadCount); badge != "" {
					line += " (" + badge + ")"
				}
				a.printf("#%d %s\n", c.UserID, line)
				if c.LastMessage != nil {
					a.printf("    %s\n", *c.LastMessage)
				}
			}
			if total := inbox.UnreadTotal(); total > 0 {
				a.printf("%s unread\n", format.UnreadBadge(total))
			}
			return nil
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send USER_ID MESSAGE",
		Short: "Send one message to a match",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			thread := chat.NewThread(a.client, a.session, peer, a.cfg.Chat.PollInterval)
			if _, err := thread.Send(ctx, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			a.printf("Sent\n")
			return nil
		},
	}
}

func newChatCmd(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "chat USER_ID",
		Short: "Open a conversation; lines typed are sent, new messages are printed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}

			if metricsAddr != "" {
				serveMetrics(ctx, metricsAddr)
			}

			thread := chat.NewThread(a.client, a.session, peer, a.cfg.Chat.PollInterval)
			printer := &messagePrinter{app: a, self: a.session.User().ID, seen: make(map[int64]bool)}
			thread.OnUpdate = printer.print

			var wg sync.WaitGroup
			var trigger <-chan struct{}
			if a.cfg.Chat.Realtime {
				trigger = a.subscribe(ctx, &wg)
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				thread.Run(ctx, trigger)
			}()

			lines := readLines(cmd.InOrStdin())
		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case line, ok := <-lines:
					if !ok {
						break loop
					}
					if _, err := thread.Send(ctx, line); err != nil && !errors.Is(err, chat.ErrEmptyMessage) {
						a.printf("%s\n", err)
					}
				}
			}
			stop()
			wg.Wait()
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while chatting")
	return cmd
}

// subscribe starts the event stream and returns the refresh trigger for
// new messages.
func (a *app) subscribe(ctx context.Context, wg *sync.WaitGroup) <-chan struct{} {
	sub, err := realtime.NewSubscriber(a.cfg.API.BaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("Realtime disabled")
		return nil
	}
	events := make(chan realtime.Event, 16)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(events)
		if err := sub.Listen(ctx, a.session.Credentials(), events); err != nil {
			log.Warn().Err(err).Msg("Realtime stopped, polling only")
		}
	}()
	return realtime.Triggers(events, realtime.EventNewMessage)
}

type messagePrinter struct {
	app  *app
	self int64

	mu   sync.Mutex
	seen map[int64]bool
}

func (p *messagePrinter) print(msgs []models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for i, m := range msgs {
		if p.seen[m.ID] {
			continue
		}
		p.seen[m.ID] = true
		if format.ShowTimestamp(msgs, i) {
			p.app.printf("  -- %s --\n", format.MessageTime(m.Timestamp.Time, now))
		}
		who := m.SenderName
		if m.SenderID == p.self {
			who = "you"
		}
		p.app.printf("%s: %s\n", who, m.Content)
	}
}

func readLines(in io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			out <- scanner.Text()
		}
	}()
	return out
}

func serveMetrics(ctx context.Context, addr string) {
	srv := &http.Server{Addr: addr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

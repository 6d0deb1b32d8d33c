package chatclient

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	defaultWSURL   = "ws://localhost:8080/ws"
	defaultHTTPURL = "http://localhost:8080"
)

// RunCLI drives the chatctl command line.
func RunCLI(prog string, args []string, stderr io.Writer) error {
	if len(args) < 1 {
		return UsageError{Program: prog}
	}
	cmd := args[0]
	rest := args[1:]
	var err error
	switch cmd {
	case "send":
		err = runSend(rest)
	case "listen":
		err = runListen(rest)
	default:
		return UsageError{Program: prog}
	}
	if err != nil {
		if stderr == nil {
			stderr = os.Stderr
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return err
}

type UsageError struct {
	Program string
}

func (u UsageError) Error() string {
	if u.Program == "" {
		u.Program = "chatctl"
	}
	return fmt.Sprintf("Usage: %s <command> [options]", u.Program)
}

func (UsageError) UsageLines() []string {
	return []string{
		"Commands:",
		"  send      Send one message and wait for the ack",
		"  listen    Open a conversation and print incoming events",
	}
}

type cliOptions struct {
	wsURL   string
	httpURL string
	token   string
	convID  uuid.UUID
	peerID  uuid.UUID
}

func parseCommon(fs *flag.FlagSet, args []string) (*cliOptions, error) {
	wsURL := fs.String("ws-url", getenv("CHATCTL_WS_URL", defaultWSURL), "channel websocket URL")
	httpURL := fs.String("http-url", getenv("CHATCTL_HTTP_URL", defaultHTTPURL), "HTTP API base URL")
	token := fs.String("token", os.Getenv("CHATCTL_TOKEN"), "access token")
	convIDStr := fs.String("conv", "", "conversation UUID")
	peerIDStr := fs.String("peer", "", "peer user UUID")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(*token) == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if strings.TrimSpace(*convIDStr) == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	convID, err := uuid.Parse(*convIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation id: %w", err)
	}
	if strings.TrimSpace(*peerIDStr) == "" {
		return nil, fmt.Errorf("peer user id is required")
	}
	peerID, err := uuid.Parse(*peerIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid peer user id: %w", err)
	}
	return &cliOptions{
		wsURL:   *wsURL,
		httpURL: *httpURL,
		token:   *token,
		convID:  convID,
		peerID:  peerID,
	}, nil
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	message := fs.String("message", "", "message text (if empty, read stdin)")
	opts, err := parseCommon(fs, args)
	if err != nil {
		return err
	}
	body := *message
	if body == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		body = string(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := Dial(ctx, Options{
		URL:         opts.wsURL,
		HistoryURL:  opts.httpURL,
		AccessToken: opts.token,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	msg, err := client.SendMessage(ctx, opts.convID, opts.peerID, body)
	if err != nil {
		return err
	}
	fmt.Printf("sent: id=%s at=%s\n", msg.ID, msg.CreatedAt.Format(time.RFC3339))
	return nil
}

func runListen(args []string) error {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts, err := parseCommon(fs, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := Dial(ctx, Options{
		URL:         opts.wsURL,
		HistoryURL:  opts.httpURL,
		AccessToken: opts.token,
		OnConnectionChange: func(connected bool) {
			if connected {
				fmt.Fprintln(os.Stderr, "connected")
			} else {
				fmt.Fprintln(os.Stderr, "connection lost, reconnecting")
			}
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	writer := bufio.NewWriter(os.Stdout)
	defer func() {
		_ = writer.Flush()
	}()
	print := func(format string, args ...any) {
		fmt.Fprintf(writer, format, args...)
		_ = writer.Flush()
	}

	sub := client.Subscribe(opts.convID, EventHandlers{
		OnMessage: func(m Message) {
			print("[%s] %s: %s\n", m.CreatedAt.Format(time.RFC3339), m.SenderID, m.Body)
			_ = client.MarkRead(m.ConversationID, m.ID)
		},
		OnTyping: func(t Typing) {
			if t.Active {
				print("%s is typing\n", t.UserID)
			}
		},
		OnRead: func(r Receipt) {
			print("message %s read at %s\n", r.MessageID, r.ReadAt.Format(time.RFC3339))
		},
	})
	defer sub.Cancel()

	history, err := client.History(ctx, opts.convID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history unavailable: %v\n", err)
	}
	for _, m := range history {
		print("[%s] %s: %s\n", m.CreatedAt.Format(time.RFC3339), m.SenderID, m.Body)
	}

	<-ctx.Done()
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

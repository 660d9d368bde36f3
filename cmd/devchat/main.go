package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"devchat/internal/chat"
	"devchat/internal/config"
	"devchat/internal/integrations/flowapi"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "devchat:", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client, err := flowapi.NewClient(cfg.Endpoint, cfg.Timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devchat:", err)
		os.Exit(1)
	}

	console := chat.NewConsole(os.Stdout)
	defer console.Close()
	session, err := chat.NewSession(client, console, chat.WithRenderer(console), chat.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, "devchat:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	console.Hint("DevChat: ask about skills and projects. Ctrl+D to quit.")
	console.Render(chat.View{Messages: session.Messages()})

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(console.Prompt())
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := scanner.Text()
		session.SetInput(line)
		if err := session.Submit(ctx, line); err != nil && !errors.Is(err, chat.ErrBusy) {
			logger.Error("submit failed", "err", err)
		}
		if ctx.Err() != nil {
			break
		}
	}
}

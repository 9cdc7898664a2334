package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timemachine/chatcore/internal/config"
	chatmodel "github.com/timemachine/chatcore/internal/model/chat"
	"github.com/timemachine/chatcore/internal/model/persona"
	"github.com/timemachine/chatcore/internal/service/backend"
	chatservice "github.com/timemachine/chatcore/internal/service/chat"
	"github.com/timemachine/chatcore/internal/service/poller"
	"github.com/timemachine/chatcore/internal/service/registry"
	"github.com/timemachine/chatcore/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	conversationStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open conversation store")
	}
	defer conversationStore.Close()

	personaStore := persona.NewMemoryStore(persona.Seed())
	client := backend.NewClient(cfg.Backend.BaseURL)
	reg := registry.New()
	replyPoller := poller.New(client, poller.Config{
		Interval:    cfg.Poll.Interval,
		MaxAttempts: cfg.Poll.MaxAttempts,
		MaxEmpty:    cfg.Poll.MaxEmpty,
	})

	engine := chatservice.NewEngine(reg, conversationStore, client, replyPoller, personaStore)
	defer engine.Close()

	saved, err := conversationStore.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load saved conversations, starting fresh")
	}
	engine.Hydrate(saved)

	engine.SetNotify(func(conversationID string, message chatmodel.Message) {
		switch message.Kind {
		case chatmodel.KindAgent:
			fmt.Printf("[%s] %s: %s\n", conversationID, message.Persona, message.Content)
		case chatmodel.KindSystem:
			fmt.Printf("[%s] * %s\n", conversationID, message.Content)
		}
	})

	fmt.Println("T.I.M.E Machine terminal. Type /help for commands.")
	printActive(engine)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nbye")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, engine, personaStore, line); quit {
				return
			}
		}
	}
}

func handleLine(ctx context.Context, engine *chatservice.Engine, personas persona.Store, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if !strings.HasPrefix(trimmed, "/") {
		if err := engine.Submit(ctx, engine.Active(), line); err != nil {
			fmt.Println("!", err)
		}
		return false
	}

	fields := strings.Fields(trimmed)
	command, args := fields[0], fields[1:]

	switch command {
	case "/help":
		fmt.Println("/personas            list available personas")
		fmt.Println("/switch <persona>    switch to (or open) a persona conversation")
		fmt.Println("/group <id,id,...>   start a group chat")
		fmt.Println("/list                list conversations")
		fmt.Println("/history             print the active conversation")
		fmt.Println("/delete [id]         delete a conversation (default: active)")
		fmt.Println("/quit                exit")
	case "/personas":
		for _, p := range personas.List() {
			fmt.Printf("  %-10s %s — %s\n", p.ID, p.Name, p.Title)
		}
	case "/switch":
		if len(args) != 1 {
			fmt.Println("! usage: /switch <persona>")
			return false
		}
		if _, err := engine.OpenConversation(args[0]); err != nil {
			fmt.Println("!", err)
			return false
		}
		printActive(engine)
	case "/group":
		if len(args) != 1 {
			fmt.Println("! usage: /group <id,id,...>")
			return false
		}
		ids := strings.Split(args[0], ",")
		if _, err := engine.StartGroupConversation(ids); err != nil {
			fmt.Println("!", err)
			return false
		}
		printActive(engine)
	case "/list":
		active := engine.Active()
		for _, c := range engine.Conversations() {
			marker := " "
			if c.ID == active {
				marker = "*"
			}
			fmt.Printf("%s %-40s %s (%d messages)\n", marker, c.ID, c.DisplayName, len(c.Messages))
		}
	case "/history":
		c, ok := engine.Conversation(engine.Active())
		if !ok {
			fmt.Println("! no active conversation")
			return false
		}
		for _, m := range c.Messages {
			switch m.Kind {
			case chatmodel.KindUser:
				fmt.Printf("you: %s\n", m.Content)
			case chatmodel.KindAgent:
				fmt.Printf("%s: %s\n", m.Persona, m.Content)
			case chatmodel.KindSystem:
				fmt.Printf("* %s\n", m.Content)
			}
		}
	case "/delete":
		id := engine.Active()
		if len(args) == 1 {
			id = args[0]
		}
		if err := engine.DeleteConversation(id); err != nil {
			fmt.Println("!", err)
			return false
		}
		printActive(engine)
	case "/quit", "/exit":
		return true
	default:
		fmt.Println("! unknown command, try /help")
	}
	return false
}

func printActive(engine *chatservice.Engine) {
	if c, ok := engine.Conversation(engine.Active()); ok {
		fmt.Printf("-- active conversation: %s --\n", c.DisplayName)
	}
}

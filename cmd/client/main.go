// Command client is a terminal chat client for the FreeSeek server: log
// in, pick or start a chat, and watch assistant responses stream in.
// Messages are rendered as markdown once complete, with reasoning spans
// shown muted.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/freeseek/freeseek/internal/client/backend"
	"github.com/freeseek/freeseek/internal/client/render"
	"github.com/freeseek/freeseek/internal/client/state"
	"github.com/freeseek/freeseek/internal/store"
)

const renderWidth = 100

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "FreeSeek server base URL")
	backendName := flag.String("backend", "remote", "chat backend: remote or local")
	localPath := flag.String("local-path", defaultLocalPath(), "path of the local chat snapshot")
	flag.Parse()

	log.SetFlags(0)

	var be backend.Store
	switch *backendName {
	case "remote":
		be = backend.NewRemoteStore(*serverURL)
	case "local":
		local, err := backend.NewLocalStore(*localPath)
		if err != nil {
			log.Fatalf("Failed to open local store: %v", err)
		}
		be = local
	default:
		log.Fatalf("Unknown backend %q (expected remote or local)", *backendName)
	}

	renderer, err := render.NewRenderer(renderWidth)
	if err != nil {
		log.Fatalf("Failed to initialize renderer: %v", err)
	}

	ctx := context.Background()
	stdin := bufio.NewScanner(os.Stdin)

	// In remote mode the chat list is mirrored into the local snapshot so
	// a later `-backend local` session can browse it offline.
	var snapshot *backend.LocalStore
	if *backendName == "remote" {
		if err := login(ctx, be, stdin); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		if ls, serr := backend.NewLocalStore(*localPath); serr == nil {
			snapshot = ls
		} else {
			fmt.Printf("Offline snapshot unavailable: %v\n", serr)
		}
	}

	refreshChats := func(st state.State) state.State {
		chats, err := be.ListChats(ctx)
		if err != nil {
			fmt.Printf("Could not load chats: %v\n", err)
			return st
		}
		if snapshot != nil {
			if err := snapshot.Replace(chats); err != nil {
				fmt.Printf("Could not update offline snapshot: %v\n", err)
			}
		}
		return state.Reduce(st, state.ChatsRefreshed{Chats: toStateChats(chats)})
	}

	st := refreshChats(state.State{})

	printHelp()
	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}

		switch {
		case line == ":quit" || line == ":q":
			return
		case line == ":help":
			printHelp()
		case line == ":new":
			st.ActiveChatID = ""
			fmt.Println("Next message starts a new chat.")
		case line == ":chats":
			printChats(&st)
		case strings.HasPrefix(line, ":open "):
			openChat(&st, strings.TrimSpace(strings.TrimPrefix(line, ":open ")), renderer)
		default:
			st = sendMessage(ctx, be, st, line, renderer, refreshChats)
		}
	}
}

func login(ctx context.Context, be backend.Store, stdin *bufio.Scanner) error {
	fmt.Print("Username: ")
	if !stdin.Scan() {
		return fmt.Errorf("no input")
	}
	username := strings.TrimSpace(stdin.Text())

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	return be.Login(ctx, username, string(password))
}

func sendMessage(ctx context.Context, be backend.Store, st state.State, content string, renderer *render.Renderer, refreshChats func(state.State) state.State) state.State {
	st = state.Reduce(st, state.OptimisticSend{Content: content, ContentType: "text"})
	if !st.InFlight {
		return st
	}

	// An optimistic chat has no server identity yet; an empty id tells the
	// backend to start a new one.
	chatID := st.ActiveChatID
	if chat := st.ActiveChat(); chat != nil && chat.Optimistic {
		chatID = ""
	}

	var cumulative strings.Builder
	err := be.StreamMessage(ctx, chatID, content, func(delta, newChatID string) {
		cumulative.WriteString(delta)
		st = state.Reduce(st, state.DeltaReceived{Cumulative: cumulative.String(), ChatID: newChatID})
		fmt.Print(delta)
	})
	fmt.Println()

	if err != nil {
		st = state.Reduce(st, state.TurnFailed{Reason: err.Error()})
		fmt.Printf("Turn failed: %v\n", st.Err)
		return st
	}

	wasNew := chatID == ""
	st = state.Reduce(st, state.TurnCompleted{})

	if out, rerr := renderer.Render(cumulative.String()); rerr == nil {
		fmt.Print(out)
	}

	// A completed turn on a brand-new chat refreshes the list so the
	// temporary identities are replaced by durable ones.
	if wasNew {
		st = refreshChats(st)
	}
	return st
}

func printChats(st *state.State) {
	if len(st.Chats) == 0 {
		fmt.Println("No chats yet.")
		return
	}
	for i, chat := range st.Chats {
		marker := " "
		if chat.ID == st.ActiveChatID {
			marker = "*"
		}
		fmt.Printf("%s %2d. %s (%d messages)\n", marker, i+1, chat.Title, len(chat.Messages))
	}
}

func openChat(st *state.State, arg string, renderer *render.Renderer) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(st.Chats) {
		fmt.Println("Usage: :open <chat number>")
		return
	}
	chat := st.Chats[n-1]
	st.ActiveChatID = chat.ID

	fmt.Printf("── %s ──\n", chat.Title)
	for _, msg := range chat.Messages {
		if msg.Role == "user" {
			fmt.Printf("you: %s\n", msg.Content)
			continue
		}
		if out, err := renderer.Render(msg.Content); err == nil {
			fmt.Print(out)
		} else {
			fmt.Println(msg.Content)
		}
	}
}

func toStateChats(chats []store.Chat) []state.Chat {
	out := make([]state.Chat, 0, len(chats))
	for _, c := range chats {
		sc := state.Chat{ID: c.ID, Title: c.Title}
		for _, m := range c.Messages {
			sc.Messages = append(sc.Messages, state.Message{
				ID:          m.ID,
				Role:        m.Role,
				Content:     m.Content,
				ContentType: m.ContentType,
			})
		}
		out = append(out, sc)
	}
	return out
}

func defaultLocalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "freeseek-chats.json"
	}
	return filepath.Join(home, ".freeseek", "chats.json")
}

func printHelp() {
	fmt.Println("Commands: :chats  :open <n>  :new  :help  :quit. Anything else is sent as a message.")
}

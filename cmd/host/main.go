// Command host runs the host device in the terminal: it creates a session,
// prints the join code, and drives the round through stdin commands while the
// reveal engine and player poller run in the background.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/neuroswipe/internal/config"
	"github.com/mcdev12/neuroswipe/internal/game"
	"github.com/mcdev12/neuroswipe/internal/host"
	"github.com/mcdev12/neuroswipe/internal/models"
	"github.com/mcdev12/neuroswipe/internal/questions"
	"github.com/mcdev12/neuroswipe/internal/store"
)

func main() {
	configPath := flag.String("config", "neuroswipe.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	st := store.NewClient(cfg.StoreURL, cfg.StoreAPIKey)
	h := host.New(st, clockwork.NewRealClock(), cfg.Game)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := h.CreateSession(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session")
	}

	fmt.Printf("\nSession code: %s\n", sess.SessionCode)
	fmt.Printf("Join link:    %s\n\n", h.JoinURL(cfg.JoinBaseURL))
	fmt.Println("Commands: start | next | again | reset | status | quit")

	go h.RunPlayerPoller(ctx)
	go renderEvents(ctx, h)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if !dispatch(ctx, h, strings.TrimSpace(scanner.Text())) {
			break
		}
	}
	cancel()
}

func dispatch(ctx context.Context, h *host.Host, cmd string) bool {
	switch cmd {
	case "start":
		if err := h.StartGame(ctx); err != nil {
			fmt.Printf("cannot start: %v\n", err)
		}
	case "next":
		if err := h.NextQuestion(ctx); err != nil {
			fmt.Printf("cannot advance: %v\n", err)
		} else {
			printPhase(h)
		}
	case "again":
		if err := h.PlayAgain(ctx); err != nil {
			fmt.Printf("cannot restart: %v\n", err)
		}
	case "reset":
		if err := h.ResetGame(ctx); err != nil {
			fmt.Printf("cannot reset: %v\n", err)
		} else {
			fmt.Println("session deleted")
			return false
		}
	case "status":
		printPhase(h)
	case "quit", "exit":
		return false
	case "":
	default:
		fmt.Printf("unknown command %q\n", cmd)
	}
	return true
}

func printPhase(h *host.Host) {
	sess, ok := h.Session()
	if !ok {
		fmt.Println("no session")
		return
	}
	switch sess.Status {
	case models.StatusLobby:
		fmt.Printf("lobby, %d players joined\n", len(h.Players()))
	case models.StatusPlaying:
		printQuestion(sess)
	case models.StatusRevealing:
		fmt.Printf("revealing question %d, type next to continue\n", sess.CurrentQuestionIndex+1)
	case models.StatusFinished:
		printLeaderboard(h)
	}
}

func printQuestion(sess models.GameSession) {
	idx := sess.CurrentQuestionIndex
	if idx < 0 || idx >= len(sess.QuestionIDs) {
		return
	}
	q, ok := questions.ByID(sess.QuestionIDs[idx])
	if !ok {
		return
	}
	fmt.Printf("\nQuestion %d/%d: %s\n%s\n", idx+1, sess.TotalQuestions, q.Title, q.Subtitle)
}

func printLeaderboard(h *host.Host) {
	players := h.Players()
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].TotalScore+players[i].Score > players[j].TotalScore+players[j].Score
	})
	fmt.Println("\nFinal scores:")
	for i, p := range players {
		fmt.Printf("  %d. %s %-16s round %d  all-time %d\n",
			i+1, p.AvatarEmoji, p.Name, p.Score, p.TotalScore+p.Score)
	}
}

func renderEvents(ctx context.Context, h *host.Host) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.Events():
			switch ev := ev.(type) {
			case host.PlayersUpdated:
				renderPlayers(h, ev)
			case host.RevealComputed:
				renderReveal(ev.Summary)
			}
		}
	}
}

func renderPlayers(h *host.Host, ev host.PlayersUpdated) {
	sess, ok := h.Session()
	if !ok {
		return
	}
	if sess.Status == models.StatusPlaying {
		fmt.Printf("\r%d/%d answered", ev.Answered, len(ev.Players))
	}
}

func renderReveal(s game.Summary) {
	fmt.Printf("\nReveal, question %d: romantic %d%%  platonic %d%%  both %d%%  (%d correct)\n",
		s.QuestionIndex+1, s.Romantic, s.Platonic, s.Both, s.CorrectCount)
	fmt.Println("type next to continue")
}

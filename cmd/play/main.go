// Command play runs a player device in the terminal: join a lobby with the
// code on the host screen, then answer each question with r / p / b.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/neuroswipe/internal/config"
	"github.com/mcdev12/neuroswipe/internal/models"
	"github.com/mcdev12/neuroswipe/internal/player"
	"github.com/mcdev12/neuroswipe/internal/store"
)

func main() {
	configPath := flag.String("config", "neuroswipe.yaml", "path to config file")
	code := flag.String("code", "", "session code or join link")
	name := flag.String("name", "", "display name")
	avatar := flag.String("avatar", "", "avatar emoji (optional)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	scanner := bufio.NewScanner(os.Stdin)
	if *code == "" {
		*code = prompt(scanner, "Session code or link: ")
	}
	if *name == "" {
		*name = prompt(scanner, "Your name: ")
	}
	if *avatar == "" {
		*avatar = pickAvatar(scanner)
	}

	st := store.NewClient(cfg.StoreURL, cfg.StoreAPIKey)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev, err := player.Join(ctx, st, clockwork.NewRealClock(), player.ParseJoinCode(*code), *name, *avatar)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("\nJoined as %s %s. Waiting for the host to start...\n", *avatar, *name)

	go dev.Run(ctx)
	go renderEvents(ctx, dev)

	for {
		if !scanner.Scan() {
			break
		}
		answer, ok := parseAnswer(scanner.Text())
		if !ok {
			continue
		}
		if err := dev.SubmitAnswer(ctx, answer); err != nil {
			fmt.Printf("answer not sent, try again: %v\n", err)
			continue
		}
		fmt.Println("answer locked in")
	}
	cancel()
}

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !scanner.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(scanner.Text())
}

func pickAvatar(scanner *bufio.Scanner) string {
	fmt.Println("Pick an avatar:")
	for i, a := range player.Avatars {
		fmt.Printf("  %2d %s", i+1, a)
		if (i+1)%6 == 0 {
			fmt.Println()
		}
	}
	fmt.Println()
	choice := prompt(scanner, "Number (enter for first): ")
	var n int
	if _, err := fmt.Sscanf(choice, "%d", &n); err == nil && n >= 1 && n <= len(player.Avatars) {
		return player.Avatars[n-1]
	}
	return player.Avatars[0]
}

func parseAnswer(line string) (models.Answer, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "r", "romantic":
		return models.AnswerRomantic, true
	case "p", "platonic":
		return models.AnswerPlatonic, true
	case "b", "both":
		return models.AnswerBoth, true
	case "":
		return models.AnswerNone, false
	default:
		fmt.Println("answer with r (romantic), p (platonic) or b (both)")
		return models.AnswerNone, false
	}
}

func renderEvents(ctx context.Context, dev *player.Device) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-dev.Events():
			switch ev := ev.(type) {
			case player.QuestionShown:
				fmt.Printf("\nQuestion %d: %s\n%s\n", ev.Index+1, ev.Question.Title, ev.Question.Subtitle)
				fmt.Printf("Romantic, platonic or both? You have about %d seconds. [r/p/b]\n", player.DisplayCountdownSeconds)
			case player.ResultShown:
				renderResult(ev)
			case player.RoundFinished:
				fmt.Printf("\nGame over! Round score %d, total %d. Watch the host screen for the leaderboard.\n",
					ev.Score, ev.TotalScore)
			case player.BackInLobby:
				fmt.Println("\nBack in the lobby, the host is setting up another round.")
			}
		}
	}
}

func renderResult(ev player.ResultShown) {
	if !ev.Answered {
		fmt.Println("\nTime's up, no answer this round.")
		return
	}
	if ev.Correct {
		fmt.Printf("\nCorrect! %s it is. +1 point.\n", ev.Answer)
		return
	}
	fmt.Printf("\nNot quite, you said %s.\n", ev.Answer)
}

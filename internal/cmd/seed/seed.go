// Package seed parses seed command flags and fills a local database with
// demo players, cards, and an open battle.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/louisbranch/emberforge/internal/arena/battle"
	"github.com/louisbranch/emberforge/internal/arena/service"
	entrypoint "github.com/louisbranch/emberforge/internal/platform/cmd"
	"github.com/louisbranch/emberforge/internal/platform/requestctx"
	"github.com/louisbranch/emberforge/internal/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath  string `env:"EMBERFORGE_DB_PATH"      envDefault:"emberforge.db"`
	Players string `env:"EMBERFORGE_SEED_PLAYERS" envDefault:"alice,bob"`
	Cards   int    `env:"EMBERFORGE_SEED_CARDS"   envDefault:"5"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The sqlite database path")
	fs.StringVar(&cfg.Players, "players", cfg.Players, "Comma-separated player ids to seed")
	fs.IntVar(&cfg.Cards, "cards", cfg.Cards, "Cards minted per player")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	players := splitPlayers(cfg.Players)
	if len(players) == 0 {
		return errors.New("at least one player is required")
	}
	if cfg.Cards < 1 {
		return errors.New("cards per player must be positive")
	}

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	arena := service.New(store, nil, nil)
	operator := requestctx.WithRole(requestctx.WithPlayerID(ctx, "seed"), requestctx.RoleOperator)

	byPlayer := make(map[string][]uint64, len(players))
	for _, player := range players {
		for i := 0; i < cfg.Cards; i++ {
			minted, err := arena.MintCard(operator, player)
			if err != nil {
				return fmt.Errorf("mint card for %s: %w", player, err)
			}
			byPlayer[player] = append(byPlayer[player], minted.ID)
			fmt.Fprintf(out, "minted card %d for %s (power %d, defense %d, speed %d, rarity %d)\n",
				minted.ID, player, minted.Stats.Power, minted.Stats.Defense, minted.Stats.Speed, minted.Stats.Rarity)
		}
	}

	// Leave one battle ready to reveal so the demo environment has
	// something to play right away.
	if len(players) >= 2 && cfg.Cards >= battle.CardsPerSide {
		starter, opponent := players[0], players[1]
		fight, err := arena.CreateBattle(requestctx.WithPlayerID(ctx, starter), opponent, byPlayer[starter][:battle.CardsPerSide])
		if err != nil {
			return fmt.Errorf("create battle: %w", err)
		}
		if _, err := arena.JoinBattle(requestctx.WithPlayerID(ctx, opponent), fight.ID, byPlayer[opponent][:battle.CardsPerSide]); err != nil {
			return fmt.Errorf("join battle: %w", err)
		}
		fmt.Fprintf(out, "battle %d ready: %s vs %s\n", fight.ID, starter, opponent)
	}
	return nil
}

func splitPlayers(raw string) []string {
	var players []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			players = append(players, name)
		}
	}
	return players
}

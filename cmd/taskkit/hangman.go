package main

import (
	"fmt"
	"math/rand"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/console"
	"github.com/jonathan/taskkit/internal/hangman"
)

var (
	hangmanWord string
	hangmanSeed int64
)

var hangmanCmd = &cobra.Command{
	Use:   "hangman",
	Short: "Play hangman with programming words",
	RunE:  runHangman,
}

func init() {
	hangmanCmd.Flags().StringVar(&hangmanWord, "word", "", "Word to guess (default: random programming word)")
	hangmanCmd.Flags().Int64Var(&hangmanSeed, "seed", 0, "Random seed for word selection (default: time based)")
	rootCmd.AddCommand(hangmanCmd)
}

func runHangman(cmd *cobra.Command, _ []string) error {
	var game *hangman.Game
	if hangmanWord != "" {
		for _, r := range hangmanWord {
			if !unicode.IsLetter(r) {
				return fmt.Errorf("--word must contain letters only, got %q", hangmanWord)
			}
		}
		game = hangman.New(hangmanWord)
	} else {
		seed := hangmanSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		game = hangman.NewRandom(rand.New(rand.NewSource(seed)))
	}

	won, err := hangman.Run(console.New(cmd.InOrStdin(), cmd.OutOrStdout()), game)
	if err != nil {
		return err
	}
	logger.Debug("hangman finished", zap.Bool("won", won), zap.Int("attempts_left", game.AttemptsLeft()))
	return nil
}

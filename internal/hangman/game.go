// Package hangman implements the word-guessing game and its console loop.
package hangman

import (
	"math/rand"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Words are the programming words the game picks from.
var Words = []string{"python", "java", "developer", "error", "random"}

// MaxAttempts is the number of wrong guesses allowed.
const MaxAttempts = 6

// Outcome is the result of one guess.
type Outcome int

const (
	// Invalid input was not exactly one letter.
	Invalid Outcome = iota
	// Repeated letters were guessed before and cost nothing.
	Repeated
	// Hit letters occur in the word.
	Hit
	// Miss letters do not occur in the word and cost one attempt.
	Miss
)

func (o Outcome) String() string {
	switch o {
	case Repeated:
		return "repeated"
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "invalid"
	}
}

// Game is one round of hangman.
type Game struct {
	word     []rune
	revealed []bool
	guessed  map[rune]bool
	attempts int
}

// New starts a game for word.
func New(word string) *Game {
	w := []rune(strings.ToLower(word))
	return &Game{
		word:     w,
		revealed: make([]bool, len(w)),
		guessed:  make(map[rune]bool),
		attempts: MaxAttempts,
	}
}

// NewRandom starts a game with a word chosen from Words.
func NewRandom(r *rand.Rand) *Game {
	return New(Words[r.Intn(len(Words))])
}

// Guess applies one line of input and returns the outcome and the letter read.
func (g *Game) Guess(input string) (Outcome, rune) {
	input = strings.ToLower(strings.TrimSpace(input))
	if utf8.RuneCountInString(input) != 1 {
		return Invalid, 0
	}
	letter, _ := utf8.DecodeRuneInString(input)
	if !unicode.IsLetter(letter) {
		return Invalid, letter
	}
	if g.guessed[letter] {
		return Repeated, letter
	}
	g.guessed[letter] = true

	hit := false
	for i, r := range g.word {
		if r == letter {
			g.revealed[i] = true
			hit = true
		}
	}
	if hit {
		return Hit, letter
	}
	g.attempts--
	return Miss, letter
}

// Masked shows found letters and underscores, separated by spaces.
func (g *Game) Masked() string {
	parts := make([]string, len(g.word))
	for i, r := range g.word {
		if g.revealed[i] {
			parts[i] = string(r)
		} else {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, " ")
}

// Word is the hidden word.
func (g *Game) Word() string { return string(g.word) }

// AttemptsLeft is the number of misses still allowed.
func (g *Game) AttemptsLeft() int { return g.attempts }

// Won reports whether every letter is revealed.
func (g *Game) Won() bool {
	for _, ok := range g.revealed {
		if !ok {
			return false
		}
	}
	return true
}

// Lost reports whether the attempts ran out first.
func (g *Game) Lost() bool { return !g.Won() && g.attempts <= 0 }

// Over reports whether the game has ended.
func (g *Game) Over() bool { return g.Won() || g.attempts <= 0 }

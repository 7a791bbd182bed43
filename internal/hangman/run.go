package hangman

import (
	"errors"
	"io"
	"strings"

	"github.com/jonathan/taskkit/internal/console"
)

// Run plays g on c until it is won or lost. Running out of input counts as a loss.
func Run(c *console.Console, g *Game) (bool, error) {
	c.Title("Welcome to Hangman!")
	c.Println("I'm thinking of a word related to programming.")
	c.Println("Your challenge: Guess the word, one letter at a time!")
	c.Println("Word to guess: %s", g.Masked())

	for !g.Over() {
		input, err := c.Prompt("\nEnter a letter: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.Println("")
				break
			}
			return false, err
		}

		outcome, letter := g.Guess(input)
		switch outcome {
		case Invalid:
			c.Warn("Please enter just one alphabet letter.")
		case Repeated:
			c.Warn("You already tried '%c'. Pick another letter.", letter)
		case Hit:
			c.Success("Nice! '%c' is in the word.", letter)
			c.Println("Word now: %s", g.Masked())
		case Miss:
			c.Fail("Oops! '%c' is not in the word.", letter)
			c.Info("Attempts left: %d", g.AttemptsLeft())
			c.Println("Word so far: %s", g.Masked())
		}
	}

	word := strings.ToUpper(g.Word())
	if g.Won() {
		c.Success("\nWoohoo! You guessed the word: %s", word)
		c.Println("Great job, programmer!")
		return true, nil
	}

	c.Fail("\nGame Over!")
	c.Println("The word was: %s", word)
	c.Println("Don't worry, you'll crack it next time.")
	return false, nil
}

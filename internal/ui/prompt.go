package ui

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
)

// ErrNotInteractive is returned by Confirm when no terminal is available to
// ask on.
var ErrNotInteractive = errors.New("confirmation required but stdin is not a terminal (use --yes)")

// Confirm asks a yes/no question on the terminal.
func Confirm(title, description string) (bool, error) {
	if !IsTerminal(os.Stdin) {
		return false, ErrNotInteractive
	}
	ok := false
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

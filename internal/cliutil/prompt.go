// Package cliutil collects the small terminal-interaction helpers
// shared by rxs-client's commands: promptui wrappers for interactive
// input and a tablewriter-backed renderer for command output.
package cliutil

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user cancels a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err represents a user-initiated abort.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for a line of text, pre-filled with defaultValue.
func Input(label, defaultValue string) (string, error) {
	prompt := promptui.Prompt{Label: label, Default: defaultValue}
	result, err := prompt.Run()
	return result, wrapError(err)
}

// InputRequired prompts for text input that cannot be empty.
func InputRequired(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if input == "" {
				return promptui.ErrAbort
			}
			return nil
		},
	}
	result, err := prompt.Run()
	return result, wrapError(err)
}

// Password prompts for masked input.
func Password(label string) (string, error) {
	prompt := promptui.Prompt{Label: label, Mask: '*'}
	result, err := prompt.Run()
	return result, wrapError(err)
}

// Select prompts the user to pick one of items.
func Select(label string, items []string) (string, error) {
	prompt := promptui.Select{Label: label, Items: items}
	_, result, err := prompt.Run()
	return result, wrapError(err)
}

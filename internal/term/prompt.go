package term

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// ErrCancelled is returned when the user backs out of a prompt.
var ErrCancelled = errors.New("cancelled")

// Select shows a single-choice menu and returns the picked value.
func Select(title string, options []huh.Option[string]) (string, error) {
	var choice string
	err := huh.NewSelect[string]().
		Title(title).
		Options(options...).
		Value(&choice).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrCancelled
		}
		return "", err
	}
	return choice, nil
}

// MultiSelect shows a checkbox menu and returns the picked values.
func MultiSelect(title string, options []huh.Option[string]) ([]string, error) {
	var choices []string
	err := huh.NewMultiSelect[string]().
		Title(title).
		Options(options...).
		Value(&choices).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, ErrCancelled
		}
		return nil, err
	}
	return choices, nil
}

// Input prompts for a line of text. validate may be nil.
func Input(title, placeholder string, validate func(string) error) (string, error) {
	var value string
	in := huh.NewInput().Title(title).Placeholder(placeholder).Value(&value)
	if validate != nil {
		in = in.Validate(validate)
	}
	if err := in.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrCancelled
		}
		return "", err
	}
	return value, nil
}

// Confirm asks a yes/no question, defaulting to def.
func Confirm(title string, def bool) (bool, error) {
	value := def
	err := huh.NewConfirm().Title(title).Value(&value).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, ErrCancelled
		}
		return false, err
	}
	return value, nil
}

// Option is a shorthand for building huh options.
func Option(label, value string) huh.Option[string] {
	return huh.NewOption(label, value)
}

package term

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh/spinner"
)

// Step is a unit of work shown to the user with a spinner. Interactive
// steps skip the spinner so their own prompts can own the terminal.
type Step struct {
	Name        string
	Run         func() (string, error)
	Interactive bool
}

func RunSteps(steps []Step) error {
	for _, s := range steps {
		if err := runStep(s); err != nil {
			return err
		}
	}
	return nil
}

func runStep(s Step) error {
	if s.Interactive {
		fmt.Println(Dim.Render("  · " + s.Name))
		result, err := s.Run()
		if err != nil {
			fmt.Printf("  %s %s\n", CrossMark, s.Name)
			return err
		}
		printStepResult(s.Name, result)
		return nil
	}

	var result string
	var runErr error
	err := spinner.New().
		Title("  " + s.Name).
		Action(func() {
			result, runErr = s.Run()
		}).
		Run()
	if err != nil {
		return err
	}
	if runErr != nil {
		fmt.Printf("  %s %s\n", CrossMark, s.Name)
		return runErr
	}
	printStepResult(s.Name, result)
	return nil
}

func printStepResult(name, result string) {
	if strings.HasPrefix(result, "skipped") {
		fmt.Printf("  %s %s (%s)\n", WarnMark, name, result)
	} else {
		fmt.Printf("  %s %s\n", CheckMark, name)
	}
}

// Spin runs fn behind a spinner with the given title.
func Spin(title string, fn func()) error {
	return spinner.New().Title(title).Action(fn).Run()
}

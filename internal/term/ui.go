package term

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

const logo = `
  ______
 |  ____|
 | |__ ___  _ __ __ _  ___
 |  __/ _ \| '__/ _` + "`" + ` |/ _ \
 | | | (_) | | | (_| |  __/
 |_|  \___/|_|  \__, |\___|
                 __/ |
                |___/       `

// Header clears the screen and prints the banner with a breadcrumb
// trail, e.g. Header("Sites", "Create").
func Header(crumbs ...string) {
	fmt.Print("\033[2J\033[H")
	fmt.Println(Cyan.Render(logo))
	fmt.Println(Dim.Render("  Server Management CLI"))
	if len(crumbs) > 0 {
		trail := append([]string{"Main"}, crumbs...)
		fmt.Println(Dim.Render("  " + strings.Join(trail, " › ")))
	}
	fmt.Println()
}

func Success(format string, args ...any) {
	fmt.Printf("%s %s\n", CheckMark, Green.Render(fmt.Sprintf(format, args...)))
}

func Error(format string, args ...any) {
	fmt.Printf("%s %s\n", CrossMark, Red.Render(fmt.Sprintf(format, args...)))
}

func Warning(format string, args ...any) {
	fmt.Printf("%s %s\n", WarnMark, Yellow.Render(fmt.Sprintf(format, args...)))
}

func Info(format string, args ...any) {
	fmt.Printf("%s %s\n", InfoMark, Cyan.Render(fmt.Sprintf(format, args...)))
}

// Pause blocks until the user presses Enter.
func Pause() {
	fmt.Print(Dim.Render("\nPress Enter to continue..."))
	bufio.NewReader(os.Stdin).ReadString('\n')
}

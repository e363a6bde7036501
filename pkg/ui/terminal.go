package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════════╗
    ║  ███████╗██╗  ██╗██╗███╗   ██╗███████╗                      ║
    ║  ██╔════╝██║ ██╔╝██║████╗  ██║██╔════╝                      ║
    ║  ███████╗█████╔╝ ██║██╔██╗ ██║███████╗                      ║
    ║  ╚════██║██╔═██╗ ██║██║╚██╗██║╚════██║                      ║
    ║  ███████║██║  ██╗██║██║ ╚████║███████║                      ║
    ║  ╚══════╝╚═╝  ╚═╝╚═╝╚═╝  ╚═══╝╚══════╝  SCRAPER             ║
    ║        skin crawl, dedup and tag classification             ║
    ╚═══════════════════════════════════════════════════════════╝
`

var (
	mu      sync.Mutex
	out      io.Writer = os.Stdout
	tty                = isTerminal(os.Stdout)
	colorOff bool
	quiet    bool
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// SetOutput redirects terminal output. Color follows whether w is a terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	f, ok := w.(*os.File)
	tty = ok && isTerminal(f)
}

// Output returns the current terminal writer
func Output() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// SetNoColor disables ANSI colors even on a terminal
func SetNoColor(disable bool) {
	mu.Lock()
	defer mu.Unlock()
	colorOff = disable
}

// SetQuiet suppresses everything except errors and warnings
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// Quiet reports whether quiet mode is on
func Quiet() bool {
	mu.Lock()
	defer mu.Unlock()
	return quiet
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.Lock()
		plain := colorOff || !tty
		mu.Unlock()
		if plain {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func emit(always bool, s string) {
	if !always && Quiet() {
		return
	}
	fmt.Fprintln(Output(), s)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	if Quiet() {
		return
	}
	fmt.Fprint(Output(), Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		emit(true, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		emit(true, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	emit(false, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	emit(false, fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		emit(true, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		emit(true, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	emit(false, Magenta(msg))
}

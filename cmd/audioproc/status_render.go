package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

func renderCheckLine(name string, passed bool, detail string, colorize bool) string {
	state := "OK"
	color := ansiGreen
	if !passed {
		state = "FAIL"
		color = ansiRed
	}
	text := fmt.Sprintf("[%s]", state)
	if detail != "" {
		text = fmt.Sprintf("[%s] %s", state, detail)
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, name+":", text)
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

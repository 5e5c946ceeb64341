package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio читает из stdin; подсказки пишутся в stderr, чтобы не смешиваться
// с выводом команд
type Stdio struct {
	in     *os.File
	prompt io.Writer
}

// NewStdio создает ввод из os.Stdin
func NewStdio() IO {
	return &Stdio{in: os.Stdin, prompt: os.Stderr}
}

// ReadInput читает строку
func (s *Stdio) ReadInput(prompt string) (string, error) {
	_, _ = fmt.Fprint(s.prompt, prompt)
	reader := bufio.NewReader(s.in)
	input, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadPassword читает секрет без эха. Если stdin не терминал
// (конвейер, CI), читает строку как есть.
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	fd := int(s.in.Fd())
	if !term.IsTerminal(fd) {
		return s.ReadInput(prompt)
	}

	_, _ = fmt.Fprint(s.prompt, prompt)
	pwBytes, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(s.prompt)
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

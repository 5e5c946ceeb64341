// Package iocli читает ввод оператора в терминале.
package iocli

//go:generate moq -out io_mock.go . IO

// IO ввод оператора: подтверждения и секреты
type IO interface {
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Коды завершения
const (
	ExitSuccess = 0
	ExitFailure = 1 // цепочка нарушена или команда не выполнена
	ExitConfig  = 2 // ошибка конфигурации или открытия хранилища
)

// ExitError ошибка с кодом завершения процесса
type ExitError struct {
	Err     error
	Message string
	Code    int
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode извлекает код завершения; по умолчанию ExitFailure
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// formatter выводит результат команды в формате --format
type formatter struct {
	w      io.Writer
	format string
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *formatter {
	return &formatter{w: cmd.OutOrStdout(), format: opts.Format}
}

// render пишет data как JSON или вызывает text для человекочитаемого вывода
func (f *formatter) render(data any, text func(w io.Writer)) error {
	if f.format == "json" {
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	text(f.w)
	return nil
}

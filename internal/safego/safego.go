// Package safego запускает фоновые горутины с перехватом паники.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go запускает fn в новой горутине. Паника перехватывается и логируется,
// процесс продолжает работу. name попадает в лог для поиска источника.
func Go(logger *slog.Logger, name string, fn func()) {
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("recovered panic in background goroutine",
					slog.String("goroutine", name),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
		}()
		fn()
	}()
}

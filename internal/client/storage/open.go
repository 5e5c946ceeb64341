package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Opener открывает конкретный бэкенд хранилища
type Opener func(ctx context.Context) (Store, error)

// Open выбирает бэкенд один раз на процесс: сначала индексированный,
// при любой ошибке плоский. Выбор не пересматривается до перезапуска.
// indexed может быть nil, если индексированный бэкенд отключен конфигурацией.
func Open(ctx context.Context, indexed, flat Opener, logger *slog.Logger) (Store, error) {
	var indexedErr error

	if indexed != nil {
		store, err := indexed(ctx)
		if err == nil {
			logger.Info("storage opened", slog.String("backend", string(store.Backend())))
			return store, nil
		}
		indexedErr = err
		logger.Warn("indexed storage unavailable, falling back to flat storage",
			slog.String("error", err.Error()))
	}

	if flat == nil {
		return nil, Unavailable("open storage", errors.Join(indexedErr, errors.New("no flat backend configured")))
	}

	store, err := flat(ctx)
	if err != nil {
		return nil, Unavailable("open storage", errors.Join(indexedErr, fmt.Errorf("flat backend: %w", err)))
	}

	logger.Info("storage opened", slog.String("backend", string(store.Backend())))
	return store, nil
}

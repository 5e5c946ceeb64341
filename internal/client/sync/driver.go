// Package sync доставляет элементы очереди синхронизации на сервер.
//
// Driver забирает пакет элементов в порядке приоритета, отправляет записи
// журнала и записи сущностей отдельными запросами и применяет результат
// по каждому элементу. Сетевая ошибка возвращает элементы в pending без
// расхода попытки; отказ сервера по элементу расходует попытку.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	clientapi "github.com/iudanet/milkledger/internal/client/api"
	"github.com/iudanet/milkledger/internal/client/queue"
	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/telemetry"
	"github.com/iudanet/milkledger/pkg/api"
)

// Значения по умолчанию
const (
	DefaultInterval      = 30 * time.Second
	DefaultBatchSize     = 20
	DefaultPushTimeout   = 10 * time.Second
	DefaultProbeInterval = 5 * time.Second
)

// ErrNetwork indicates that remote is unreachable; items were returned to pending
var ErrNetwork = errors.New("sync: remote unavailable")

//go:generate moq -out driver_mock.go . Pusher EntryMarker

// Pusher отправляет пакеты на сервер
type Pusher interface {
	PushAuditLogs(ctx context.Context, req api.PushAuditRequest) (*api.PushResponse, error)
	PushRecords(ctx context.Context, req api.PushRecordsRequest) (*api.PushResponse, error)
	Health(ctx context.Context) error
}

// EntryMarker отмечает записи журнала подтвержденными сервером
type EntryMarker interface {
	MarkEntriesSynced(ctx context.Context, ids []string, at time.Time) error
}

// Config настройки драйвера
type Config struct {
	Interval      time.Duration // Interval период фоновой синхронизации
	PushTimeout   time.Duration // PushTimeout таймаут одного запроса
	ProbeInterval time.Duration // ProbeInterval период проверки связи в офлайне
	BatchSize     int           // BatchSize максимум элементов за один проход
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.PushTimeout <= 0 {
		c.PushTimeout = DefaultPushTimeout
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Result итог одного прохода синхронизации
type Result struct {
	Attempted  int // элементов взято из очереди
	Synced     int // принято сервером (включая дубликаты)
	Duplicates int // уже были на сервере
	Failed     int // отклонено, попытка израсходована
	Requeued   int // возвращено в pending из-за сетевой ошибки
}

// Driver фоновая синхронизация очереди
type Driver struct {
	pusher  Pusher
	marker  EntryMarker
	queue   *queue.Queue
	logger  *slog.Logger
	now     func() time.Time
	trigger chan struct{}
	cfg     Config
	offline atomic.Bool
	running gosync.Mutex // только один проход одновременно
}

// NewDriver создает драйвер синхронизации
func NewDriver(pusher Pusher, marker EntryMarker, q *queue.Queue, cfg Config, logger *slog.Logger) *Driver {
	return &Driver{
		pusher:  pusher,
		marker:  marker,
		queue:   q,
		logger:  logger,
		now:     time.Now,
		trigger: make(chan struct{}, 1),
		cfg:     cfg.withDefaults(),
	}
}

// Trigger запрашивает внеочередной проход. Не блокируется;
// несколько вызовов до начала прохода схлопываются в один.
func (d *Driver) Trigger() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// HandleEnqueue запускает синхронизацию для срочных элементов.
// Регистрируется через queue.OnEnqueue.
func (d *Driver) HandleEnqueue(priority models.Priority) {
	if priority.Urgent() {
		d.Trigger()
	}
}

// Offline сообщает, завершился ли последний проход сетевой ошибкой
func (d *Driver) Offline() bool {
	return d.offline.Load()
}

// Run выполняет синхронизацию по таймеру и по Trigger до отмены ctx.
// Перед стартом возвращает в pending элементы, зависшие в syncing.
func (d *Driver) Run(ctx context.Context) error {
	if n, err := d.queue.RecoverStale(ctx); err != nil {
		d.logger.Warn("failed to recover stale queue items", slog.String("error", err.Error()))
	} else if n > 0 {
		d.logger.Info("recovered stale queue items", slog.Int("count", n))
	}

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	probe := time.NewTicker(d.cfg.ProbeInterval)
	defer probe.Stop()

	d.logger.Info("sync driver started",
		slog.Duration("interval", d.cfg.Interval),
		slog.Int("batch_size", d.cfg.BatchSize))

	d.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("sync driver stopped")
			return ctx.Err()
		case <-ticker.C:
			d.drain(ctx)
		case <-d.trigger:
			d.drain(ctx)
		case <-probe.C:
			d.probe(ctx)
		}
	}
}

// probe проверяет связь в офлайне и запускает проход при ее восстановлении
func (d *Driver) probe(ctx context.Context) {
	if !d.offline.Load() {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.cfg.PushTimeout)
	defer cancel()

	if err := d.pusher.Health(probeCtx); err != nil {
		d.logger.Debug("remote still unavailable", slog.String("error", err.Error()))
		return
	}

	d.logger.Info("connectivity restored, triggering sync")
	d.offline.Store(false)
	d.Trigger()
}

// drain отправляет пакеты, пока очередь не опустеет или не случится ошибка
func (d *Driver) drain(ctx context.Context) {
	for ctx.Err() == nil {
		res, err := d.SyncOnce(ctx)
		if err != nil {
			if errors.Is(err, ErrNetwork) {
				d.logger.Info("remote unavailable, staying offline", slog.String("error", err.Error()))
			} else {
				d.logger.Error("sync pass failed", slog.String("error", err.Error()))
			}
			return
		}
		// Пакет меньше лимита: очередь опустела
		if res.Attempted < d.cfg.BatchSize {
			return
		}
	}
}

// SyncOnce выполняет один проход: до BatchSize элементов.
// Если проход уже выполняется, сразу возвращает пустой результат.
// Итог непустого прохода сохраняется в состоянии синхронизации очереди.
func (d *Driver) SyncOnce(ctx context.Context) (*Result, error) {
	result, err := d.syncOnce(ctx)
	if result == nil || result.Attempted == 0 {
		return result, err
	}

	if serr := d.queue.RecordPass(ctx, d.now(), result.Synced, err); serr != nil {
		d.logger.Warn("failed to record sync pass", slog.String("error", serr.Error()))
	}
	return result, err
}

func (d *Driver) syncOnce(ctx context.Context) (*Result, error) {
	result := &Result{}

	if !d.running.TryLock() {
		return result, nil
	}
	defer d.running.Unlock()

	items, err := d.queue.PendingItems(ctx, d.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending items: %w", err)
	}
	if len(items) == 0 {
		return result, nil
	}
	result.Attempted = len(items)

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if err := d.queue.MarkSyncing(ctx, ids); err != nil {
		return nil, fmt.Errorf("failed to mark items syncing: %w", err)
	}

	auditItems, recordItems := split(items)

	// Записи журнала первыми: отказ сети на первом запросе не тратит второй
	if len(auditItems) > 0 {
		if err := d.pushAudit(ctx, auditItems, result); err != nil {
			d.requeue(ctx, recordItems, result)
			return result, err
		}
	}
	if len(recordItems) > 0 {
		if err := d.pushRecords(ctx, recordItems, result); err != nil {
			return result, err
		}
	}

	d.offline.Store(false)

	d.logger.Debug("sync pass completed",
		slog.Int("attempted", result.Attempted),
		slog.Int("synced", result.Synced),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("failed", result.Failed))

	return result, nil
}

// split делит элементы на записи журнала и записи сущностей
func split(items []*models.SyncQueueItem) (audit, records []*models.SyncQueueItem) {
	for _, it := range items {
		if it.Operation == models.OperationAuditAppend {
			audit = append(audit, it)
		} else {
			records = append(records, it)
		}
	}
	return audit, records
}

func (d *Driver) pushAudit(ctx context.Context, items []*models.SyncQueueItem, result *Result) error {
	req := api.PushAuditRequest{Logs: make([]*models.AuditEntry, 0, len(items))}
	byEntry := make(map[string]*models.SyncQueueItem, len(items))

	for _, it := range items {
		var entry models.AuditEntry
		if err := storage.Decode(it.Payload, &entry); err != nil || entry.ID == "" {
			d.fail(ctx, it, "corrupt audit payload", result)
			continue
		}
		req.Logs = append(req.Logs, &entry)
		byEntry[entry.ID] = it
	}
	if len(req.Logs) == 0 {
		return nil
	}

	pushCtx, cancel := context.WithTimeout(ctx, d.cfg.PushTimeout)
	defer cancel()

	start := time.Now()
	resp, err := d.pusher.PushAuditLogs(pushCtx, req)
	telemetry.SyncPushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return d.pushError(ctx, byEntry, err, result)
	}
	telemetry.SyncPushesTotal.WithLabelValues("ok").Inc()

	synced := d.apply(ctx, byEntry, resp, result)
	if len(synced) > 0 {
		if err := d.marker.MarkEntriesSynced(ctx, synced, d.now()); err != nil {
			// Элементы очереди уже synced; флаг записи только информационный
			d.logger.Warn("failed to mark entries synced", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (d *Driver) pushRecords(ctx context.Context, items []*models.SyncQueueItem, result *Result) error {
	req := api.PushRecordsRequest{Records: make([]api.Record, 0, len(items))}
	byID := make(map[string]*models.SyncQueueItem, len(items))

	for _, it := range items {
		req.Records = append(req.Records, api.Record{
			ID:         it.ID,
			Operation:  it.Operation,
			EntityType: it.EntityType,
			EntityID:   it.EntityID,
			Data:       it.Payload,
		})
		byID[it.ID] = it
	}

	pushCtx, cancel := context.WithTimeout(ctx, d.cfg.PushTimeout)
	defer cancel()

	start := time.Now()
	resp, err := d.pusher.PushRecords(pushCtx, req)
	telemetry.SyncPushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return d.pushError(ctx, byID, err, result)
	}
	telemetry.SyncPushesTotal.WithLabelValues("ok").Inc()

	d.apply(ctx, byID, resp, result)
	return nil
}

// pushError обрабатывает ошибку запроса целиком. Отказ сервера (4xx)
// расходует попытку каждого элемента пакета и не прерывает проход;
// остальные ошибки считаются сетевыми, элементы пакета возвращаются в pending.
func (d *Driver) pushError(ctx context.Context, batch map[string]*models.SyncQueueItem, err error, result *Result) error {
	if errors.Is(err, clientapi.ErrRejected) {
		telemetry.SyncPushesTotal.WithLabelValues("rejected").Inc()
		for _, it := range batch {
			d.fail(ctx, it, err.Error(), result)
		}
		return nil
	}

	telemetry.SyncPushesTotal.WithLabelValues("network_error").Inc()
	d.offline.Store(true)

	items := make([]*models.SyncQueueItem, 0, len(batch))
	for _, it := range batch {
		items = append(items, it)
	}
	d.requeue(ctx, items, result)

	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// apply применяет результаты по элементам. Возвращает ключи принятых элементов.
func (d *Driver) apply(ctx context.Context, batch map[string]*models.SyncQueueItem, resp *api.PushResponse, result *Result) []string {
	accepted := make([]string, 0, len(batch))
	seen := make(map[string]bool, len(batch))

	for _, r := range resp.Results {
		it, ok := batch[r.ID]
		if !ok || seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		switch r.Status {
		case api.StatusAccepted, api.StatusDuplicate:
			if err := d.queue.MarkSynced(ctx, it.ID); err != nil {
				d.logger.Warn("failed to mark item synced",
					slog.String("id", it.ID),
					slog.String("error", err.Error()))
				continue
			}
			result.Synced++
			if r.Status == api.StatusDuplicate {
				result.Duplicates++
			}
			accepted = append(accepted, r.ID)
		default:
			reason := r.Error
			if reason == "" {
				reason = "rejected by server"
			}
			d.fail(ctx, it, reason, result)
		}
	}

	// Сервер не ответил по элементу: попытка расходуется, иначе элемент вечно висит
	for key, it := range batch {
		if !seen[key] {
			d.fail(ctx, it, "no result from server", result)
		}
	}

	return accepted
}

func (d *Driver) fail(ctx context.Context, it *models.SyncQueueItem, reason string, result *Result) {
	if err := d.queue.MarkSyncFailed(ctx, it.ID, reason); err != nil {
		d.logger.Warn("failed to mark item failed",
			slog.String("id", it.ID),
			slog.String("error", err.Error()))
		return
	}
	result.Failed++
}

// requeue возвращает элементы из syncing в pending
func (d *Driver) requeue(ctx context.Context, items []*models.SyncQueueItem, result *Result) {
	if len(items) == 0 {
		return
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if err := d.queue.ResetSyncing(ctx, ids); err != nil {
		d.logger.Warn("failed to reset syncing items", slog.String("error", err.Error()))
		return
	}
	result.Requeued += len(ids)
}

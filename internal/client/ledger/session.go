package ledger

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/clock"
	"github.com/iudanet/milkledger/internal/models"
)

// newSessionID генерирует идентификатор сессии процесса: SES-<base36 время>-<случайная часть>
func newSessionID() string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "SES-" + strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36)) + "-" + random
}

// newMachineID генерирует идентификатор устройства: MID-<os>-<cpu>core-<случайная часть>
func newMachineID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("MID-%s-%dcore-%s", runtime.GOOS, runtime.NumCPU(), random)
}

// loadMachineID читает идентификатор устройства из хранилища,
// создавая его при первом запуске
func loadMachineID(ctx context.Context, store storage.Store, clk *clock.Monotonic) (string, error) {
	var identity models.MachineIdentity
	err := store.Get(ctx, CollectionMeta, models.MachineIdentityID, &identity)
	if err == nil && identity.MachineID != "" {
		return identity.MachineID, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to load machine id: %w", err)
	}

	identity = models.MachineIdentity{
		ID:        models.MachineIdentityID,
		MachineID: newMachineID(),
		CreatedAt: clk.Now(),
	}
	if err := store.Set(ctx, CollectionMeta, &identity); err != nil {
		return "", fmt.Errorf("failed to save machine id: %w", err)
	}

	return identity.MachineID, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(models.TimestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(models.TimestampLayout, s)
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/milkledger/internal/client/iocli"
	"github.com/iudanet/milkledger/internal/client/ledger"
	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/client/storage/boltdb"
	"github.com/iudanet/milkledger/internal/models"
)

const testSigningSecret = "test-signing-secret"

// setupEnv настраивает клиент на временный каталог через переменные окружения
func setupEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("MILKLEDGER_CLIENT_DATA_DIR", dir)
	t.Setenv("MILKLEDGER_CLIENT_BACKEND", "bolt")
	t.Setenv("MILKLEDGER_CLIENT_SIGNING_SECRET", testSigningSecret)
	t.Setenv("MILKLEDGER_CLIENT_REMOTE_URL", "")
	t.Setenv("MILKLEDGER_LOGGING_LEVEL", "error")
	return dir
}

// noPrompt ввод, который не должен вызываться
func noPrompt(t *testing.T) *iocli.IOMock {
	return &iocli.IOMock{
		ReadInputFunc: func(prompt string) (string, error) {
			t.Errorf("unexpected input prompt %q", prompt)
			return "", errors.New("unexpected prompt")
		},
		ReadPasswordFunc: func(prompt string) (string, error) {
			t.Errorf("unexpected password prompt %q", prompt)
			return "", errors.New("unexpected prompt")
		},
	}
}

func execute(t *testing.T, in iocli.IO, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand("test", in)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, in iocli.IO, args ...string) string {
	t.Helper()

	out, err := execute(t, in, args...)
	require.NoError(t, err, "command %v", args)
	return out
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("1.2.3", noPrompt(t))
	require.NotNil(t, cmd)
	assert.Equal(t, "milkledger", cmd.Use)
	assert.Equal(t, "1.2.3", cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("test", noPrompt(t))
	commands := [][]string{
		{"init"}, {"log"}, {"entries"}, {"verify"}, {"export"}, {"prune"},
		{"sync"}, {"run"}, {"status"}, {"queue"},
		{"queue", "list"}, {"queue", "add"}, {"queue", "requeue"}, {"queue", "purge"}, {"queue", "clear"},
	}

	for _, path := range commands {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand("test", noPrompt(t))

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, noPrompt(t), "status", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInit(t *testing.T) {
	out := mustExecute(t, noPrompt(t), "init", "--format", "json")

	var s secrets
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Len(t, s.SigningSecret, 43)
	assert.Len(t, s.PushSecret, 43)
	assert.NotEqual(t, s.SigningSecret, s.PushSecret)
}

func TestLogAndEntries(t *testing.T) {
	setupEnv(t)
	in := noPrompt(t)

	out := mustExecute(t, in, "log", "SALE_CREATE", "invoice", "INV-1",
		"--data", `{"totalAmount":120.50,"paymentMode":"cash"}`,
		"--notes", "Sale of 120.50",
		"--actor", "cashier-1",
		"--format", "json")

	var entry models.AuditEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, models.ActionSaleCreate, entry.Action)
	assert.Equal(t, "cashier-1", entry.UserID)
	assert.Empty(t, entry.PreviousHash)
	assert.True(t, strings.HasPrefix(entry.Hash, "sha256:"))

	mustExecute(t, in, "log", "MILK_INTAKE", "milk_collection", "C-7", "--data", `{"liters":12.5}`)

	tests := []struct {
		name    string
		args    []string
		wantIDs []string
	}{
		{name: "recent newest first", args: []string{"entries"}, wantIDs: []string{"C-7", "INV-1"}},
		{name: "limit", args: []string{"entries", "-n", "1"}, wantIDs: []string{"C-7"}},
		{name: "by action", args: []string{"entries", "--action", "SALE_CREATE"}, wantIDs: []string{"INV-1"}},
		{name: "by entity", args: []string{"entries", "--entity-type", "milk_collection", "--entity-id", "C-7"}, wantIDs: []string{"C-7"}},
		{name: "by actor", args: []string{"entries", "--actor", "cashier-1"}, wantIDs: []string{"INV-1"}},
		{name: "by date range", args: []string{"entries", "--from", "2000-01-01"}, wantIDs: []string{"INV-1", "C-7"}},
		{name: "unsynced", args: []string{"entries", "--unsynced"}, wantIDs: []string{"INV-1", "C-7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustExecute(t, in, append(tt.args, "--format", "json")...)

			var entries []*models.AuditEntry
			require.NoError(t, json.Unmarshal([]byte(out), &entries))

			ids := make([]string, 0, len(entries))
			for _, e := range entries {
				ids = append(ids, e.EntityID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestLogErrors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "data is not an object", args: []string{"log", "SALE_CREATE", "invoice", "INV-1", "--data", "[1,2]"}, wantErr: "JSON object"},
		{name: "malformed action", args: []string{"log", "sale create", "invoice", "INV-1"}, wantErr: "invalid audit entry"},
		{name: "missing args", args: []string{"log", "SALE_CREATE"}, wantErr: "accepts 3 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, noPrompt(t), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEntriesFilterErrors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "two filters", args: []string{"entries", "--action", "LOGOUT", "--actor", "u1"}, wantErr: "only one filter"},
		{name: "entity id alone", args: []string{"entries", "--entity-id", "INV-1"}, wantErr: "requires --entity-type"},
		{name: "bad date", args: []string{"entries", "--from", "yesterday"}, wantErr: "invalid --from"},
		{name: "inverted range", args: []string{"entries", "--from", "2024-02-01", "--to", "2024-01-01"}, wantErr: "before --from"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, noPrompt(t), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVerify(t *testing.T) {
	dir := setupEnv(t)
	in := noPrompt(t)

	mustExecute(t, in, "log", "SHIFT_START", "shift", "S-1")
	mustExecute(t, in, "log", "SALE_CREATE", "invoice", "INV-1", "--data", `{"totalAmount":50}`)
	mustExecute(t, in, "log", "SHIFT_END", "shift", "S-1")

	out := mustExecute(t, in, "verify", "--signatures")
	assert.Contains(t, out, "entries: 3")
	assert.Contains(t, out, "chain: valid")

	tamperNotes(t, filepath.Join(dir, "milkledger.db"), 1, "edited after the fact")

	out, err := execute(t, in, "verify", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ledger.VerifyResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Issues)
	assert.Equal(t, ledger.IssueHashMismatch, result.Issues[0].Kind)
	assert.Equal(t, 1, result.Issues[0].Index)
}

// tamperNotes меняет заметку записи в обход журнала
func tamperNotes(t *testing.T, path string, index int, notes string) {
	t.Helper()
	ctx := context.Background()

	store, err := boltdb.New(ctx, path)
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	raw, err := store.GetAll(ctx, ledger.CollectionEntries)
	require.NoError(t, err)
	require.Greater(t, len(raw), index)

	var e models.AuditEntry
	require.NoError(t, storage.Decode(raw[index], &e))
	e.Notes = notes
	require.NoError(t, store.Set(ctx, ledger.CollectionEntries, &e))
}

func TestExport(t *testing.T) {
	dir := setupEnv(t)
	in := noPrompt(t)

	mustExecute(t, in, "log", "SALE_VOID", "invoice", "INV-9", "--notes", "Invoice voided: typo")

	t.Run("csv to file", func(t *testing.T) {
		path := filepath.Join(dir, "audit.csv")
		mustExecute(t, in, "export", "--as", "csv", "-o", path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "Timestamp,Action,Entity,ID,User,Notes,Hash", lines[0])
		assert.Contains(t, lines[1], "SALE_VOID")
	})

	t.Run("json to stdout includes previous export", func(t *testing.T) {
		out := mustExecute(t, in, "export")

		var entries []*models.AuditEntry
		require.NoError(t, json.Unmarshal([]byte(out), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, models.ActionDataExport, entries[1].Action)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, in, "export", "--as", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported export format")
	})
}

func TestPrune_NothingOld(t *testing.T) {
	setupEnv(t)
	in := noPrompt(t)

	mustExecute(t, in, "log", "LOGOUT", "user", "u1")

	out := mustExecute(t, in, "prune", "--days", "30", "--format", "json")

	var res map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res["removed"])
	assert.Equal(t, 30, res["daysToKeep"])

	mustExecute(t, in, "verify")
}

func TestStatus(t *testing.T) {
	setupEnv(t)
	in := noPrompt(t)

	mustExecute(t, in, "log", "SETTINGS_CHANGE", "settings", "rate_chart")

	out := mustExecute(t, in, "status", "--format", "json")

	var st Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.TrialMode)
	assert.Equal(t, string(storage.BackendFlat), st.Backend)
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, 1, st.Unsynced)
	assert.NotEmpty(t, st.MachineID)
	assert.True(t, strings.HasPrefix(st.Head, "sha256:"))
	assert.Equal(t, 1, st.Queue.Total)
	assert.Equal(t, 1, st.Queue.ByStatus[models.QueueStatusPending])

	text := mustExecute(t, in, "status")
	assert.Contains(t, text, "trial mode")
	assert.Contains(t, text, "Entries:  1 (1 unsynced)")
}

func TestSigningSecretPrompt(t *testing.T) {
	setupEnv(t)
	t.Setenv("MILKLEDGER_CLIENT_SIGNING_SECRET", "")

	in := &iocli.IOMock{
		ReadPasswordFunc: func(prompt string) (string, error) {
			return testSigningSecret, nil
		},
	}

	mustExecute(t, in, "log", "LOGOUT", "user", "u1")
	require.Len(t, in.ReadPasswordCalls(), 1)
	assert.Equal(t, "Signing secret: ", in.ReadPasswordCalls()[0].Prompt)

	// Тот же секрет из окружения дает ту же подпись
	t.Setenv("MILKLEDGER_CLIENT_SIGNING_SECRET", testSigningSecret)
	mustExecute(t, noPrompt(t), "verify", "--signatures")

	t.Run("empty answer", func(t *testing.T) {
		t.Setenv("MILKLEDGER_CLIENT_SIGNING_SECRET", "")
		empty := &iocli.IOMock{
			ReadPasswordFunc: func(prompt string) (string, error) {
				return "", nil
			},
		}

		_, err := execute(t, empty, "status")
		require.Error(t, err)
		assert.Equal(t, ExitConfig, GetExitCode(err))
	})
}

func TestSync_TrialMode(t *testing.T) {
	setupEnv(t)

	for _, name := range []string{"sync", "run"} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, noPrompt(t), name)
			require.ErrorIs(t, err, ErrSyncDisabled)
		})
	}
}

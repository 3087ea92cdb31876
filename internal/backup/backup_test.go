package backup

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/bodycontrol/internal/database"
	"github.com/dukerupert/bodycontrol/internal/model"
	"github.com/dukerupert/bodycontrol/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

var testConfig = Config{
	S3:            S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret", Region: "us-east-1"},
	Passphrase:    "passphrase",
	Interval:      time.Hour,
	RetentionDays: 30,
}

func setupManager(t *testing.T, cb StatusCallback) (*Manager, *mockS3Client, *database.DB) {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:", slog.Default())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(testConfig, db, store.NewBackupStore(db), cb, slog.Default())
	mock := newMockS3()
	m.client = mock
	return m, mock, db
}

func TestManagerStateLifecycle(t *testing.T) {
	// No configuration -> disabled
	m := NewManager(Config{}, nil, nil, nil, slog.Default())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if _, err := m.RunNow(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("RunNow err = %v, want ErrDisabled", err)
	}

	// Postgres stores are never snapshotted
	pg := NewManager(testConfig, &database.DB{Driver: database.DriverPostgres}, nil, nil, slog.Default())
	if pg.Enabled() {
		t.Error("expected backups disabled for postgres")
	}

	// Missing passphrase -> disabled
	cfg := testConfig
	cfg.Passphrase = ""
	np := NewManager(cfg, &database.DB{Driver: database.DriverSQLite}, nil, nil, slog.Default())
	if np.Enabled() {
		t.Error("expected backups disabled without passphrase")
	}

	ok := NewManager(testConfig, &database.DB{Driver: database.DriverSQLite}, nil, nil, slog.Default())
	if ok.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", ok.Status().State, StateIdle)
	}
}

func TestRunNowAndFetch(t *testing.T) {
	var mu sync.Mutex
	var states []State
	m, mock, db := setupManager(t, func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})
	ctx := context.Background()

	if _, err := db.Exec("INSERT INTO member (id, name) VALUES ('m1', 'Alice'), ('m2', 'Bob')"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	record, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if record.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want completed", record.Status)
	}
	if _, ok := mock.objects[record.ObjectKey]; !ok {
		t.Fatalf("object %q not uploaded", record.ObjectKey)
	}
	if record.SizeBytes != int64(len(mock.objects[record.ObjectKey])) {
		t.Errorf("size = %d, want %d", record.SizeBytes, len(mock.objects[record.ObjectKey]))
	}

	mu.Lock()
	if len(states) != 2 || states[0] != StateRunning || states[1] != StateIdle {
		t.Errorf("states = %v, want [running idle]", states)
	}
	mu.Unlock()
	if m.Status().LastBackup == nil {
		t.Error("expected last backup time")
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := m.Fetch(ctx, record.ID, dst); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	restored, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer restored.Close()
	var count int
	if err := restored.QueryRow("SELECT COUNT(*) FROM member").Scan(&count); err != nil {
		t.Fatalf("count members: %v", err)
	}
	if count != 2 {
		t.Errorf("restored members = %d, want 2", count)
	}
}

func TestRunNowUploadFailure(t *testing.T) {
	m, mock, _ := setupManager(t, nil)
	mock.putErr = errors.New("bucket unavailable")
	ctx := context.Background()

	if _, err := m.RunNow(ctx); err == nil {
		t.Fatal("expected error when upload fails")
	}
	if m.Status().State != StateError {
		t.Errorf("state = %q, want %q", m.Status().State, StateError)
	}

	list, err := m.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.BackupStatusFailed {
		t.Errorf("list = %+v, want one failed backup", list)
	}
}

func TestFetchUnknownBackup(t *testing.T) {
	m, _, _ := setupManager(t, nil)

	err := m.Fetch(context.Background(), "missing", filepath.Join(t.TempDir(), "x.db"))
	if err == nil {
		t.Fatal("expected error for unknown backup")
	}
}

func TestCleanupRemovesExpiredObjects(t *testing.T) {
	m, mock, db := setupManager(t, nil)
	ctx := context.Background()

	old, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run old: %v", err)
	}
	if _, err := db.Exec("UPDATE backups SET created_at = ? WHERE id = ?", time.Now().AddDate(0, 0, -60).Unix(), old.ID); err != nil {
		t.Fatalf("age backup: %v", err)
	}
	recent, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run recent: %v", err)
	}

	if err := m.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, ok := mock.objects[old.ObjectKey]; ok {
		t.Error("expired object should be deleted")
	}
	if _, ok := mock.objects[recent.ObjectKey]; !ok {
		t.Error("recent object should remain")
	}
}

func TestManagerStopSafety(t *testing.T) {
	m, _, _ := setupManager(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	m.Stop()
	// Double stop should not panic
	m.Stop()

	disabled := NewManager(Config{}, nil, nil, nil, slog.Default())
	disabled.Start(context.Background())
	disabled.Stop()
}

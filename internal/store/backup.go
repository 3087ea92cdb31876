package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/bodycontrol/internal/database"
	"github.com/dukerupert/bodycontrol/internal/model"
)

type BackupStore struct {
	db *database.DB
}

func NewBackupStore(db *database.DB) *BackupStore {
	return &BackupStore{db: db}
}

const backupCols = `id, filename, object_key, size_bytes, status, error_message, created_at, completed_at`

func scanBackup(scanner interface{ Scan(...any) error }) (*model.Backup, error) {
	var b model.Backup
	var errMsg sql.NullString
	var completedAt sql.NullInt64
	if err := scanner.Scan(&b.ID, &b.Filename, &b.ObjectKey, &b.SizeBytes, &b.Status, &errMsg, &b.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	b.ErrorMessage = errMsg.String
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Int64
	}
	return &b, nil
}

func (s *BackupStore) Create(ctx context.Context, filename, objectKey string) (*model.Backup, error) {
	b := model.Backup{
		ID:        uuid.NewString(),
		Filename:  filename,
		ObjectKey: objectKey,
		Status:    model.BackupStatusPending,
		CreatedAt: time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO backups (id, filename, object_key, status, created_at) VALUES (?, ?, ?, ?, ?)`),
		b.ID, b.Filename, b.ObjectKey, b.Status, b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	return &b, nil
}

func (s *BackupStore) GetByID(ctx context.Context, id string) (*model.Backup, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+backupCols+` FROM backups WHERE id = ?`), id)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return b, nil
}

// List returns the most recent backups first.
func (s *BackupStore) List(ctx context.Context, limit int) ([]model.Backup, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind(`SELECT `+backupCols+` FROM backups ORDER BY created_at DESC LIMIT ?`), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	backups := []model.Backup{}
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

func (s *BackupStore) UpdateStatus(ctx context.Context, id string, status model.BackupStatus, errorMsg string) error {
	var errPtr *string
	if errorMsg != "" {
		errPtr = &errorMsg
	}
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE backups SET status = ?, error_message = ? WHERE id = ?`),
		status, errPtr, id,
	)
	if err != nil {
		return fmt.Errorf("update backup status: %w", err)
	}
	return nil
}

func (s *BackupStore) UpdateCompleted(ctx context.Context, id string, sizeBytes int64) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE backups SET status = ?, size_bytes = ?, completed_at = ? WHERE id = ?`),
		model.BackupStatusCompleted, sizeBytes, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("update backup completed: %w", err)
	}
	return nil
}

// DeleteOlderThan deletes backups created before the given time and returns
// the object keys of the deleted rows.
func (s *BackupStore) DeleteOlderThan(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind(`SELECT object_key FROM backups WHERE created_at < ?`), before.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("select old backups: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan object key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	_, err = s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM backups WHERE created_at < ?`), before.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, nil
}

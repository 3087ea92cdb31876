package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/bodycontrol/internal/database"
	"github.com/dukerupert/bodycontrol/internal/model"
)

type WeightStore struct {
	db  *database.DB
	now func() time.Time
}

func NewWeightStore(db *database.DB) *WeightStore {
	return &WeightStore{db: db, now: time.Now}
}

// Create records a measurement for memberID. The member is not required to
// exist.
func (s *WeightStore) Create(ctx context.Context, memberID string, value float64) (*model.Weight, error) {
	ts := s.now().Unix()
	w := model.Weight{
		MemberID:   memberID,
		Value:      value,
		CreateTime: ts,
		UpdateTime: ts,
	}
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind(`INSERT INTO weight (id, member_id, value, create_time, update_time) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		uuid.NewString(), w.MemberID, w.Value, w.CreateTime, w.UpdateTime,
	).Scan(&w.ID)
	if err != nil {
		return nil, fmt.Errorf("insert weight: %w", err)
	}
	return &w, nil
}

// ListByMember returns the member's measurements, or an empty slice.
func (s *WeightStore) ListByMember(ctx context.Context, memberID string) ([]model.Weight, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind(`SELECT id, member_id, value, create_time, update_time FROM weight WHERE member_id = ?`),
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("query weights: %w", err)
	}
	defer rows.Close()

	weights := []model.Weight{}
	for rows.Next() {
		var w model.Weight
		if err := rows.Scan(&w.ID, &w.MemberID, &w.Value, &w.CreateTime, &w.UpdateTime); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		weights = append(weights, w)
	}
	return weights, rows.Err()
}

func (s *WeightStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM weight WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete weight: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/bodycontrol/internal/database"
	"github.com/dukerupert/bodycontrol/internal/model"
)

type MemberStore struct {
	db *database.DB
}

func NewMemberStore(db *database.DB) *MemberStore {
	return &MemberStore{db: db}
}

// Create stores m under a freshly generated id. Any id already set on m is
// ignored.
func (s *MemberStore) Create(ctx context.Context, m model.Member) (*model.Member, error) {
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind(`INSERT INTO member (id, name, nickname, sex, relationship) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		uuid.NewString(), m.Name, m.Nickname, m.Sex, m.Relationship,
	).Scan(&m.ID)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return &m, nil
}

// List returns every member in storage order.
func (s *MemberStore) List(ctx context.Context) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, nickname, sex, relationship FROM member`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Nickname, &m.Sex, &m.Relationship); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Delete removes the member with the given id. Deleting an unknown id is not
// an error, and the member's weights are left in place.
func (s *MemberStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM member WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

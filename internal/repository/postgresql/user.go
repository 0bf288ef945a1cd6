package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, company_id, department_id, section_id, shift_id, full_name, email, role,
	managed_departments, managed_sections, is_active, created_at, updated_at`

type userRepositoryImpl struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) user.UserRepository {
	return &userRepositoryImpl{db: db}
}

func (r *userRepositoryImpl) GetByID(ctx context.Context, id string) (user.User, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// FindActiveUsers returns matches ordered by created_at, id so resolution is deterministic.
func (r *userRepositoryImpl) FindActiveUsers(ctx context.Context, filter user.UserFilter) ([]user.User, error) {
	q := GetQuerier(ctx, r.db)

	whereClause := "WHERE is_active = true"
	args := []interface{}{}
	argIndex := 1

	add := func(clause string, value interface{}) {
		whereClause += fmt.Sprintf(" AND "+clause, argIndex)
		args = append(args, value)
		argIndex++
	}

	if filter.Role != nil {
		add("role = $%d", string(*filter.Role))
	}
	if filter.CompanyID != nil {
		add("company_id = $%d", *filter.CompanyID)
	}
	if filter.DepartmentID != nil {
		add("department_id = $%d", *filter.DepartmentID)
	}
	if filter.SectionID != nil {
		add("section_id = $%d", *filter.SectionID)
	}
	if filter.ShiftID != nil {
		add("shift_id = $%d", *filter.ShiftID)
	}
	switch {
	case filter.ManagesDepartment != nil && filter.ManagesSection != nil:
		whereClause += fmt.Sprintf(" AND ($%d = ANY(managed_departments) OR $%d = ANY(managed_sections))", argIndex, argIndex+1)
		args = append(args, *filter.ManagesDepartment, *filter.ManagesSection)
		argIndex += 2
	case filter.ManagesDepartment != nil:
		add("$%d = ANY(managed_departments)", *filter.ManagesDepartment)
	case filter.ManagesSection != nil:
		add("$%d = ANY(managed_sections)", *filter.ManagesSection)
	}
	if filter.ExcludeUserID != nil {
		add("id <> $%d", *filter.ExcludeUserID)
	}

	query := `SELECT ` + userColumns + ` FROM users ` + whereClause + ` ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string
	err := row.Scan(
		&u.ID, &u.CompanyID, &u.DepartmentID, &u.SectionID, &u.ShiftID,
		&u.FullName, &u.Email, &role,
		&u.ManagedDepartments, &u.ManagedSections,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	u.Role = user.Role(role)
	return u, err
}

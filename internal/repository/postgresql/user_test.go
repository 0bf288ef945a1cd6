package postgresql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumnNames = []string{
	"id", "company_id", "department_id", "section_id", "shift_id", "full_name", "email", "role",
	"managed_departments", "managed_sections", "is_active", "created_at", "updated_at",
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindActiveUsers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	now := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	section := "sec-1"
	rows := pgxmock.NewRows(userColumnNames).
		AddRow("mgr", "c1", "d1", (*string)(nil), (*string)(nil), "Dept Manager", "mgr@example.com", "dept_manager",
			[]string{"d1", "d2"}, []string{}, true, now, now)

	query := regexp.QuoteMeta(`WHERE is_active = true AND role = $1 AND company_id = $2` +
		` AND ($3 = ANY(managed_departments) OR $4 = ANY(managed_sections)) AND id <> $5 ORDER BY created_at, id`)
	mock.ExpectQuery(query).
		WithArgs("dept_manager", "c1", "d1", "sec-1", "emp").
		WillReturnRows(rows)

	role := user.RoleDeptManager
	company, dept, exclude := "c1", "d1", "emp"
	users, err := repo.FindActiveUsers(context.Background(), user.UserFilter{
		Role:              &role,
		CompanyID:         &company,
		ManagesDepartment: &dept,
		ManagesSection:    &section,
		ExcludeUserID:     &exclude,
	})

	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "mgr", users[0].ID)
	assert.Equal(t, user.RoleDeptManager, users[0].Role)
	assert.Equal(t, []string{"d1", "d2"}, users[0].ManagedDepartments)
	assert.Nil(t, users[0].SectionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindActiveUsers_NoFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE is_active = true ORDER BY created_at, id`)).
		WithArgs().
		WillReturnRows(pgxmock.NewRows(userColumnNames))

	users, err := repo.FindActiveUsers(context.Background(), user.UserFilter{})

	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

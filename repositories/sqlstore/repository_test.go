package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/contact-directory/config"
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return WrapDB(sqlDB, config.DriverPostgres, zap.NewNop()), mock
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("sets generated id", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("a@example.com", "hash", "A", models.RoleViewer).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

		user := models.NewUser("a@example.com", "hash", "A", models.RoleViewer)
		require.NoError(t, repo.Create(ctx, user))
		assert.Equal(t, int64(5), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("postgres unique violation maps to ErrDuplicate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, models.NewUser("a@example.com", "hash", "", ""))
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
	})

	t.Run("sqlite unique violation maps to ErrDuplicate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})

		err := repo.Create(ctx, models.NewUser("a@example.com", "hash", "", ""))
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery("INSERT INTO users").WillReturnError(errors.New("disk full"))

		err := repo.Create(ctx, models.NewUser("a@example.com", "hash", "", ""))
		require.Error(t, err)
		assert.NotErrorIs(t, err, repositories.ErrDuplicate)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("admin@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "name", "role"}).
				AddRow(1, "admin@example.com", "password", "Admin User", "admin"))

		user, err := repo.GetByEmail(ctx, "admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.Equal(t, "password", user.PasswordHash)
	})

	t.Run("missing maps to ErrNotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "name", "role"}))

		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestUserRepository_LockByRole(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		query  string
	}{
		{"postgres locks rows", config.DriverPostgres, `SELECT id FROM users WHERE role = $1 ORDER BY id FOR UPDATE`},
		{"sqlite relies on the write lock", config.DriverSQLite, `SELECT id FROM users WHERE role = $1 ORDER BY id`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			t.Cleanup(func() { _ = sqlDB.Close() })
			repo := NewUserRepository(WrapDB(sqlDB, tt.driver, zap.NewNop()), zap.NewNop())

			mock.ExpectQuery(tt.query).
				WithArgs(models.RoleAdmin).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(4))

			n, err := repo.LockByRole(context.Background(), models.RoleAdmin)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_BackfillDefaultRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	mock.ExpectExec("UPDATE users SET role").
		WithArgs(models.RoleViewer).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.BackfillDefaultRole(context.Background(), models.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), models.AuditActionCreate, "contact", sqlmock.AnyArg(), "{}", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	entry := models.NewAuditLog(models.AuditActionCreate, models.EntityContact).
		WithUser(1).WithEntity(2).WithDetails("{}")
	require.NoError(t, repo.Insert(context.Background(), entry))

	assert.Equal(t, int64(11), entry.ID)
	assert.False(t, entry.Timestamp.IsZero(), "timestamp is set at write time")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository_UpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContactRepository(db, zap.NewNop())

	mock.ExpectExec("UPDATE contacts").WillReturnResult(sqlmock.NewResult(0, 0))

	name := "Ada"
	_, err := repo.Update(context.Background(), 99, &models.ContactPatch{FirstName: &name})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestTransactionManager_InTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success and routes queries through the transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectCommit()

		err := tm.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
			n, err := repo.Count(ctx)
			assert.Equal(t, 2, n)
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := tm.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBuildSQLiteDSN(t *testing.T) {
	dsn := buildSQLiteDSN("data/database.sqlite")

	assert.Contains(t, dsn, "data/database.sqlite?")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_journal_mode=WAL")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
}

// hasTime guards against zero timestamps coming back from the driver
func hasTime(t *testing.T, ts time.Time) {
	t.Helper()
	assert.False(t, ts.IsZero())
}

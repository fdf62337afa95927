package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"

	"github.com/AlibekovAA/registration-board/internal/common/db"
	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
)

const uniqueViolation = "23505"

type Repository interface {
	List(ctx context.Context, limit int) ([]domain.User, error)
	Create(ctx context.Context, id domain.ID, user domain.NewUser) (domain.User, error)
	Delete(ctx context.Context, id domain.ID) error
}

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type PgRepository struct {
	q Querier
}

func NewPgRepository(q Querier) *PgRepository {
	return &PgRepository{q: q}
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]domain.User, error) {
	start := time.Now()
	rows, err := r.q.Query(
		ctx,
		`SELECT id, name, email, created_at
		 FROM users
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, commonerrors.ErrUserListFailed, "list users", start)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var (
			id   string
			user domain.User
		)
		if err := rows.Scan(&id, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, db.HandleQueryError(err, commonerrors.ErrUserListFailed, "scan user", start)
		}
		user.ID = domain.ID(id)
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, commonerrors.ErrUserListFailed, "iterate users", start)
	}

	db.MeasureQueryDuration("list users", start)
	return users, nil
}

func (r *PgRepository) Create(ctx context.Context, id domain.ID, user domain.NewUser) (domain.User, error) {
	start := time.Now()
	row := r.q.QueryRow(
		ctx,
		`INSERT INTO users (id, name, email)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, email, created_at`,
		string(id),
		user.Name,
		user.Email,
	)

	var (
		createdID string
		created   domain.User
	)
	err := row.Scan(&createdID, &created.Name, &created.Email, &created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			db.MeasureQueryDuration("create user", start)
			return domain.User{}, commonerrors.ErrEmailAlreadyRegistered
		}
		return domain.User{}, db.HandleQueryError(err, commonerrors.ErrUserCreateFailed, "create user", start)
	}

	db.MeasureQueryDuration("create user", start)
	created.ID = domain.ID(createdID)
	return created, nil
}

func (r *PgRepository) Delete(ctx context.Context, id domain.ID) error {
	start := time.Now()
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, string(id))
	if err != nil {
		return db.HandleExecError(err, "delete user", start)
	}
	db.MeasureQueryDuration("delete user", start)

	if tag.RowsAffected() == 0 {
		return commonerrors.ErrUserNotFound
	}
	return nil
}

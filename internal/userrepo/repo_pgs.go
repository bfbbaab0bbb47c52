// Package userrepo stores account owners and their credentials.
package userrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/pkg/dbpkg"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates owner repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns user RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const ownerColumns = `username, hashed_password, email, password_changed_at, created_at`

func scanOwner(row *sql.Row) (domain.Owner, error) {
	var o domain.Owner

	err := row.Scan(
		&o.Username,
		&o.HashedPassword,
		&o.Email,
		&o.PasswordChangedAt,
		&o.CreatedAt,
	)

	return o, err
}

const createQuery = `
INSERT INTO users (username, hashed_password, email)
VALUES ($1, $2, $3)
RETURNING ` + ownerColumns

// Create registers the owner and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.RegisterOwnerParams) (domain.Owner, error) {
	l := zerolog.Ctx(ctx)

	o, err := scanOwner(r.db.QueryRowContext(ctx, createQuery, arg.Username, arg.HashedPassword, arg.Email))
	if err != nil {
		if dbpkg.CodeOf(err) == dbpkg.CodeUniqueViolation {
			switch dbpkg.ConstraintOf(err) {
			case "users_pkey":
				return domain.Owner{}, domain.ErrUsernameTaken
			case "users_email_key":
				return domain.Owner{}, domain.ErrEmailTaken
			}
		}

		l.Error().Err(err).Str("username", arg.Username).Send()

		return domain.Owner{}, errorspkg.ErrInternal
	}

	return o, nil
}

const getQuery = `SELECT ` + ownerColumns + ` FROM users WHERE username = $1`

// Get returns the owner with the given username.
func (r *RepoPGS) Get(ctx context.Context, username string) (domain.Owner, error) {
	l := zerolog.Ctx(ctx)

	o, err := scanOwner(r.db.QueryRowContext(ctx, getQuery, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Owner{}, domain.ErrOwnerNotFound
		}

		l.Error().Err(err).Send()

		return domain.Owner{}, errorspkg.ErrInternal
	}

	return o, nil
}

const existsQuery = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`

// Exists reports whether the owner is registered.
func (r *RepoPGS) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool

	if err := r.db.QueryRowContext(ctx, existsQuery, username).Scan(&exists); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return false, errorspkg.ErrInternal
	}

	return exists, nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "showroom/internal/config"
	"showroom/internal/domain"
	"showroom/internal/domain/models"
)

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r UserRepository) Create(ctx context.Context, u models.User) error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, password_hash, role, status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.Phone, u.PasswordHash, u.Role, u.Status, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil && isDuplicateKey(err) {
		return domain.ConflictError{Resource: "user", Msg: "email sudah terdaftar", Err: err}
	}
	return err
}

func (r UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

func (r UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.getOne(ctx, "id=?", id)
}

func (r UserRepository) getOne(ctx context.Context, where string, arg any) (models.User, error) {
	db := r.db()
	if db == nil {
		return models.User{}, fmt.Errorf("db tidak tersedia")
	}
	var u models.User
	err := db.QueryRowContext(ctx, `
		SELECT id, name, email, COALESCE(phone,''), password_hash, role, status, created_at, updated_at
		FROM users
		WHERE `+where+` LIMIT 1`, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, err
	}
	return u, nil
}

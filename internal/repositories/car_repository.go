package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intconfig "showroom/internal/config"
	"showroom/internal/domain"
	"showroom/internal/domain/models"
)

// CarRepository reads the catalog rows booking intake depends on.
type CarRepository struct {
	DB *sql.DB
}

func (r CarRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r CarRepository) GetByID(ctx context.Context, id string) (models.Car, error) {
	db := r.db()
	if db == nil {
		return models.Car{}, fmt.Errorf("db tidak tersedia")
	}
	var c models.Car
	err := db.QueryRowContext(ctx, `
		SELECT id, COALESCE(title,''), COALESCE(year,0), COALESCE(price,0), COALESCE(status,'')
		FROM cars
		WHERE id=? LIMIT 1`, id).Scan(&c.ID, &c.Title, &c.Year, &c.Price, &c.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Car{}, domain.NotFoundError{Resource: "car", Err: err}
		}
		return models.Car{}, err
	}
	return c, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"carrental/internal/db"
)

// CarQuery narrows a fleet select. Zero values select everything.
type CarQuery struct {
	Status string
	Limit  int
}

// DeletedCars is what a fleet delete removed. Bookings of these cars go with
// them through ON DELETE CASCADE, so BookingUserIDs names whose lists changed.
type DeletedCars struct {
	Cars           []db.Car
	BookingUserIDs []string
}

type CarRepository interface {
	List(ctx context.Context, q CarQuery) ([]db.Car, error)
	GetByID(ctx context.Context, id string) (*db.Car, error)
	Create(ctx context.Context, car *db.Car) error
	Update(ctx context.Context, car *db.Car) error
	DeleteByIDs(ctx context.Context, ids []string) (DeletedCars, error)
	InsertMany(ctx context.Context, cars []db.Car) error
	Count(ctx context.Context) (int, error)
}

type carRepository struct {
	db *sql.DB
}

func NewCarRepository(conn *sql.DB) CarRepository {
	return &carRepository{db: conn}
}

const carColumns = `id, brand, model, year, price_per_day, type, fuel_type, transmission, seats,
	images, features, rating, status, registration_number, description, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCar(row rowScanner) (db.Car, error) {
	var c db.Car
	var images, features pq.StringArray
	err := row.Scan(
		&c.ID, &c.Brand, &c.Model, &c.Year, &c.PricePerDay, &c.Type, &c.FuelType, &c.Transmission, &c.Seats,
		&images, &features, &c.Rating, &c.Status, &c.RegistrationNumber, &c.Description, &c.CreatedAt, &c.UpdatedAt,
	)
	c.Images = []string(images)
	c.Features = []string(features)
	if c.Images == nil {
		c.Images = []string{}
	}
	if c.Features == nil {
		c.Features = []string{}
	}
	return c, err
}

func (r *carRepository) List(ctx context.Context, q CarQuery) ([]db.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if q.Status != "" {
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, q.Status)
		idx++
	}
	query += " ORDER BY created_at DESC"
	if q.Limit > 0 {
		query += " LIMIT $" + strconv.Itoa(idx)
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing cars: %w", err)
	}
	defer rows.Close()

	cars := make([]db.Car, 0)
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning car: %w", err)
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

func (r *carRepository) GetByID(ctx context.Context, id string) (*db.Car, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1`, id)
	c, err := scanCar(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting car %s: %w", id, err)
	}
	return &c, nil
}

func (r *carRepository) Create(ctx context.Context, car *db.Car) error {
	return insertCar(ctx, r.db, car)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCar(ctx context.Context, ex execer, car *db.Car) error {
	now := time.Now().UTC()
	if car.CreatedAt.IsZero() {
		car.CreatedAt = now
	}
	car.UpdatedAt = now
	query := `
	INSERT INTO cars (` + carColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := ex.ExecContext(ctx, query,
		car.ID, car.Brand, car.Model, car.Year, car.PricePerDay, car.Type, car.FuelType, car.Transmission, car.Seats,
		pq.Array(car.Images), pq.Array(car.Features), car.Rating, car.Status, car.RegistrationNumber, car.Description,
		car.CreatedAt, car.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting car: %w", err)
	}
	return nil
}

func (r *carRepository) Update(ctx context.Context, car *db.Car) error {
	car.UpdatedAt = time.Now().UTC()
	query := `
	UPDATE cars SET
		brand = $2, model = $3, year = $4, price_per_day = $5, type = $6, fuel_type = $7, transmission = $8,
		seats = $9, images = $10, features = $11, rating = $12, status = $13, registration_number = $14,
		description = $15, updated_at = $16
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		car.ID, car.Brand, car.Model, car.Year, car.PricePerDay, car.Type, car.FuelType, car.Transmission,
		car.Seats, pq.Array(car.Images), pq.Array(car.Features), car.Rating, car.Status, car.RegistrationNumber,
		car.Description, car.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error updating car %s: %w", car.ID, err)
	}
	return requireAffected(res)
}

// DeleteByIDs removes the given cars in one statement and returns what was deleted.
func (r *carRepository) DeleteByIDs(ctx context.Context, ids []string) (DeletedCars, error) {
	out := DeletedCars{Cars: []db.Car{}, BookingUserIDs: []string{}}
	if len(ids) == 0 {
		return out, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return out, err
	}
	defer tx.Rollback()

	users, err := tx.QueryContext(ctx, `SELECT DISTINCT user_id FROM bookings WHERE car_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return out, fmt.Errorf("error listing bookings of deleted cars: %w", err)
	}
	for users.Next() {
		var id string
		if err := users.Scan(&id); err != nil {
			users.Close()
			return out, fmt.Errorf("error scanning booking user: %w", err)
		}
		out.BookingUserIDs = append(out.BookingUserIDs, id)
	}
	users.Close()
	if err := users.Err(); err != nil {
		return out, err
	}

	rows, err := tx.QueryContext(ctx, `DELETE FROM cars WHERE id = ANY($1) RETURNING `+carColumns, pq.Array(ids))
	if err != nil {
		return out, fmt.Errorf("error deleting cars: %w", err)
	}
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			rows.Close()
			return out, fmt.Errorf("error scanning deleted car: %w", err)
		}
		out.Cars = append(out.Cars, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}
	return out, tx.Commit()
}

func (r *carRepository) InsertMany(ctx context.Context, cars []db.Car) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range cars {
		if err := insertCar(ctx, tx, &cars[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *carRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting cars: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

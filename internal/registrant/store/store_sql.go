package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"profreg/internal/platform/database"
	"profreg/internal/registrant/models"
	"profreg/pkg/platform/sentinel"
)

// ErrConflict is returned when an insert would duplicate an email or phone.
var ErrConflict = sentinel.ErrConflict

// SQLStore is the persistence gateway over the profession table. Every call
// acquires its own connection and releases it before returning.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQL constructs a gateway for db using the dialect's placeholder style.
func NewSQL(db *sql.DB, dialect database.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) acquire(ctx context.Context) (*sql.Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// ExistsByEmailOrPhone reports whether any row shares email or phone.
func (s *SQLStore) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	query := s.dialect.Rebind(`SELECT 1 FROM profession WHERE email = ? OR phone = ? LIMIT 1`)
	var one int
	err = conn.QueryRowContext(ctx, query, email, phone).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find registrant by email or phone: %w", err)
	}
	return true, nil
}

// InsertIfUnique commits r unless a row with the same email or phone exists,
// in which case it returns ErrConflict. The existence check rides on the insert
// statement; a racer that slips past it hits the UNIQUE columns instead and is
// reported the same way.
func (s *SQLStore) InsertIfUnique(ctx context.Context, r *models.Registrant) error {
	if r == nil {
		return fmt.Errorf("registrant is required")
	}
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert registrant: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := s.dialect.Rebind(`INSERT INTO profession (name, surname, phone, email, profession)
		SELECT ?, ?, ?, ?, ?` + s.dialect.FromDual() + `
		WHERE NOT EXISTS (SELECT 1 FROM profession WHERE email = ? OR phone = ?)`)
	res, err := tx.ExecContext(ctx, query,
		r.Name, r.Surname, r.Phone, r.Email, r.Profession,
		r.Email, r.Phone,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert registrant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert registrant rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("commit registrant: %w", err)
	}
	return nil
}

// ListAll returns every persisted registrant in storage order.
func (s *SQLStore) ListAll(ctx context.Context) ([]*models.Registrant, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `SELECT name, surname, phone, email, profession FROM profession`)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	defer rows.Close()

	var result []*models.Registrant
	for rows.Next() {
		var r models.Registrant
		if err := rows.Scan(&r.Name, &r.Surname, &r.Phone, &r.Email, &r.Profession); err != nil {
			return nil, fmt.Errorf("scan registrant: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	return result, nil
}

// ListProfessions returns the profession column of every row.
func (s *SQLStore) ListProfessions(ctx context.Context) ([]string, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `SELECT profession FROM profession`)
	if err != nil {
		return nil, fmt.Errorf("list professions: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan profession: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list professions: %w", err)
	}
	return result, nil
}

// Ping checks that a connection can be acquired, for the health endpoint.
func (s *SQLStore) Ping(ctx context.Context) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.PingContext(ctx)
}

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == postgresUniqueViolation
	}
	return false
}

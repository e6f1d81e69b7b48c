// Package postgresdb provides a PostgreSQL-based implementation of the storage interface
// for persisting users and their bookmarks.
// Email uniqueness is enforced by a unique index, so concurrent signups race safely.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/bookmarks/internal/db/storage"
	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresDB is a PostgreSQL-backed implementation of the bookmarks storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping all tables before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `sql.Open()` calling: %w", err)
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w", err)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w", err)
	}

	return result, nil
}

// CreateUser inserts a new user and returns its generated ID.
// It returns storage.ErrDuplicate when the email is already registered.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO users (email, password_hash, first_name, last_name)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		usr.Email,
		usr.PasswordHash,
		usr.FirstName,
		usr.LastName,
	)
	var userID string
	if err := row.Scan(&userID); err != nil {
		if isPgError(err, pgUniqueViolation) {
			return "", storage.ErrDuplicate
		}
		return "", fmt.Errorf("in internal/db/postgresdb/postgresdb.go/CreateUser(): error while `row.Scan()` calling: %w", err)
	}

	return userID, nil
}

// GetUserByEmail fetches a user, including the password hash, by exact email.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, email, password_hash, first_name, last_name, created_at, updated_at
				FROM users
				WHERE email = $1
		`,
		email,
	)

	return scanUser(row)
}

// GetUserByID fetches a user by UUID. Malformed IDs are reported as not found.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, storage.ErrNotFound
	}

	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, email, password_hash, first_name, last_name, created_at, updated_at
				FROM users
				WHERE id = $1
		`,
		userID,
	)

	return scanUser(row)
}

// UpdateUser saves the profile fields and email of an existing user.
func (db *PostgresDB) UpdateUser(ctx context.Context, usr *user.User) error {
	if _, err := uuid.Parse(usr.ID); err != nil {
		return storage.ErrNotFound
	}

	result, err := db.database.ExecContext(
		ctx,
		`
			UPDATE users
				SET email = $2, first_name = $3, last_name = $4, updated_at = now()
				WHERE id = $1
		`,
		usr.ID,
		usr.Email,
		usr.FirstName,
		usr.LastName,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/UpdateUser(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return expectOneRow(result)
}

// CreateBookmark inserts a bookmark owned by bookmark.UserID and returns its ID.
func (db *PostgresDB) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (string, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO bookmarks (user_id, title, description, link)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		bookmark.UserID,
		bookmark.Title,
		bookmark.Description,
		bookmark.Link,
	)
	var bookmarkID string
	if err := row.Scan(&bookmarkID); err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("in internal/db/postgresdb/postgresdb.go/CreateBookmark(): error while `row.Scan()` calling: %w", err)
	}

	return bookmarkID, nil
}

// GetUserBookmarks returns the bookmarks owned by userID, oldest first.
func (db *PostgresDB) GetUserBookmarks(ctx context.Context, userID string) (models.Bookmarks, error) {
	result := models.Bookmarks{}
	if _, err := uuid.Parse(userID); err != nil {
		return result, nil
	}

	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, user_id, title, description, link, created_at, updated_at
				FROM bookmarks
				WHERE user_id = $1
				ORDER BY created_at, id
		`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/GetUserBookmarks(): error while `db.database.QueryContext()` calling: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		bookmark, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, bookmark)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/GetUserBookmarks(): error while `rows.Err()` calling: %w", err)
	}

	return result, nil
}

// GetUserBookmark fetches a bookmark only if it belongs to userID.
func (db *PostgresDB) GetUserBookmark(ctx context.Context, userID, bookmarkID string) (*models.Bookmark, error) {
	if _, err := uuid.Parse(bookmarkID); err != nil {
		return nil, storage.ErrNotFound
	}

	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, user_id, title, description, link, created_at, updated_at
				FROM bookmarks
				WHERE id = $1 AND user_id = $2
		`,
		bookmarkID,
		userID,
	)

	return scanBookmark(row)
}

// UpdateBookmark saves title, description and link of a bookmark owned by bookmark.UserID.
func (db *PostgresDB) UpdateBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	if _, err := uuid.Parse(bookmark.ID); err != nil {
		return storage.ErrNotFound
	}

	row := db.database.QueryRowContext(
		ctx,
		`
			UPDATE bookmarks
				SET title = $3, description = $4, link = $5, updated_at = now()
				WHERE id = $1 AND user_id = $2
				RETURNING updated_at
		`,
		bookmark.ID,
		bookmark.UserID,
		bookmark.Title,
		bookmark.Description,
		bookmark.Link,
	)
	if err := row.Scan(&bookmark.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/UpdateBookmark(): error while `row.Scan()` calling: %w", err)
	}

	return nil
}

// DeleteUserBookmark removes a bookmark only if it belongs to userID.
func (db *PostgresDB) DeleteUserBookmark(ctx context.Context, userID, bookmarkID string) error {
	if _, err := uuid.Parse(bookmarkID); err != nil {
		return storage.ErrNotFound
	}

	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`,
		bookmarkID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/DeleteUserBookmark(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return expectOneRow(result)
}

// GetNumberOfUsers returns the amount of registered users.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

// GetNumberOfBookmarks returns the amount of stored bookmarks.
func (db *PostgresDB) GetNumberOfBookmarks(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM bookmarks`)
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var amount int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&amount); err != nil {
		return 0, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/count(): error while `Scan()` calling: %w", err)
	}

	return amount, nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*user.User, error) {
	usr := &user.User{}
	err := row.Scan(
		&usr.ID,
		&usr.Email,
		&usr.PasswordHash,
		&usr.FirstName,
		&usr.LastName,
		&usr.CreatedAt,
		&usr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/scanUser(): error while `row.Scan()` calling: %w", err)
	}

	return usr, nil
}

func scanBookmark(row scanner) (*models.Bookmark, error) {
	bookmark := &models.Bookmark{}
	err := row.Scan(
		&bookmark.ID,
		&bookmark.UserID,
		&bookmark.Title,
		&bookmark.Description,
		&bookmark.Link,
		&bookmark.CreatedAt,
		&bookmark.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/scanBookmark(): error while `row.Scan()` calling: %w", err)
	}

	return bookmark, nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/expectOneRow(): error while `result.RowsAffected()` calling: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

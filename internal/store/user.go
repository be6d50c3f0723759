package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/userdesk/apiserver/types"
)

// UserUpdate carries the column values for a partial user update. A nil
// field keeps the current value. PasswordHash is always written; the caller
// supplies either a freshly hashed password or the existing hash.
type UserUpdate struct {
	Name         *string
	Surname      *string
	Email        *string
	NationalID   *string
	Nickname     *string
	PasswordHash string
	Role         *string
	Active       *bool
	Image        *string
}

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, surname, email, national_id, nickname, password_hash, role, created_at, active, image`

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var user types.User
	var image sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Surname,
		&user.Email,
		&user.NationalID,
		&user.Nickname,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.Active,
		&image,
	)
	if err != nil {
		return types.User{}, err
	}
	user.Image = image.String
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// List returns all users in creation order.
func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// FindConflicting returns a user, other than excludeID, holding any of the
// provided unique values. Nil arguments are skipped. ErrNotFound means no
// conflict exists.
func (r *UserRepository) FindConflicting(ctx context.Context, email, nationalID, nickname *string, excludeID int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE (($1::text IS NOT NULL AND email = $1)
			OR ($2::text IS NOT NULL AND national_id = $2)
			OR ($3::text IS NOT NULL AND nickname = $3))
			AND id <> $4
		LIMIT 1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email, nationalID, nickname, excludeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// Create inserts the user and returns it with the store-assigned id.
// Unique-index collisions surface as ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (name, surname, email, national_id, nickname, password_hash, role, created_at, active, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Surname,
		user.Email,
		user.NationalID,
		user.Nickname,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.Active,
		user.Image,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

// Update applies the supplied fields as a single statement. id and
// created_at are not updatable. Unique-index collisions surface as
// ErrConflict, an unknown id as ErrNotFound.
func (r *UserRepository) Update(ctx context.Context, id int, update UserUpdate) error {
	const query = `
		UPDATE users
		SET name = COALESCE($1, name),
			surname = COALESCE($2, surname),
			email = COALESCE($3, email),
			national_id = COALESCE($4, national_id),
			nickname = COALESCE($5, nickname),
			password_hash = $6,
			role = COALESCE($7, role),
			active = COALESCE($8, active),
			image = COALESCE($9, image)
		WHERE id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		update.Name,
		update.Surname,
		update.Email,
		update.NationalID,
		update.Nickname,
		update.PasswordHash,
		update.Role,
		update.Active,
		update.Image,
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user if present. Deleting an unknown id is a no-op.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

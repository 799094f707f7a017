package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/repository"
)

const userColumns = `id, username, email, display_name, avatar, bio, website, created_at, updated_at`

// CreateUser inserts a user and its empty socials and settings rows in one
// transaction, so a user never exists without them.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create user tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.DisplayName,
		user.Avatar,
		user.Bio,
		user.Website,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %s: %w", user.ID, translateUnique(err))
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO socials (user_id) VALUES (?)`, user.ID); err != nil {
		return fmt.Errorf("sqlite: inserting socials for %s: %w", user.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO settings (user_id) VALUES (?)`, user.ID); err != nil {
		return fmt.Errorf("sqlite: inserting settings for %s: %w", user.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user %s: %w", user.ID, err)
	}
	return nil
}

// GetUserByID retrieves a user by their identity-provider ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// FindUser looks the identifier up as a username first, then as an ID.
func (db *DB) FindUser(ctx context.Context, identifier string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, identifier)
	u, err := scanUser(row)
	if err == nil {
		return u, nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("sqlite: finding user %s: %w", identifier, err)
	}
	return db.GetUserByID(ctx, identifier)
}

// UpdateUser applies the non-nil fields of update. The socials row is
// upserted in the same transaction when update.Socials is set.
func (db *DB) UpdateUser(ctx context.Context, id string, update repository.UserUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now()}

	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("username", update.Username)
	add("email", update.Email)
	add("display_name", update.DisplayName)
	add("avatar", update.Avatar)
	add("bio", update.Bio)
	add("website", update.Website)
	args = append(args, id)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning update user tx: %w", err)
	}
	defer tx.Rollback()

	// The column list is built from fixed names above; values stay parameterized.
	result, err := tx.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", id, translateUnique(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}

	if s := update.Socials; s != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO socials (user_id, github, youtube, linkedin, instagram)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			   github = excluded.github,
			   youtube = excluded.youtube,
			   linkedin = excluded.linkedin,
			   instagram = excluded.instagram`,
			id, s.GitHub, s.YouTube, s.LinkedIn, s.Instagram,
		)
		if err != nil {
			return fmt.Errorf("sqlite: upserting socials for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user update %s: %w", id, err)
	}
	return nil
}

// DeleteUser removes the user; foreign keys cascade to every owned row.
func (db *DB) DeleteUser(ctx context.Context, id string) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}

func (db *DB) GetSocials(ctx context.Context, userID string) (*model.Socials, error) {
	var s model.Socials
	err := db.conn.QueryRowContext(ctx,
		`SELECT github, youtube, linkedin, instagram FROM socials WHERE user_id = ?`, userID,
	).Scan(&s.GitHub, &s.YouTube, &s.LinkedIn, &s.Instagram)
	if err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("sqlite: getting socials for %s: %w", userID, err)
	}
	return &s, nil
}

func (db *DB) GetSettings(ctx context.Context, userID string) (map[string]any, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx, `SELECT data FROM settings WHERE user_id = ?`, userID).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("sqlite: getting settings for %s: %w", userID, err)
	}

	data := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("sqlite: decoding settings for %s: %w", userID, err)
		}
	}
	return data, nil
}

func (db *DB) SaveSettings(ctx context.Context, userID string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sqlite: encoding settings for %s: %w", userID, err)
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO settings (user_id, data) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data`,
		userID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving settings for %s: %w", userID, err)
	}
	return nil
}

// scanUser reads one users row. The nullable email column needs a
// sql.NullString on the way out.
func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&email,
		&u.DisplayName,
		&u.Avatar,
		&u.Bio,
		&u.Website,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		u.Email = &email.String
	}
	return &u, nil
}

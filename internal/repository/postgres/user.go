package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/repository"
)

// CreateUser inserts the user with empty socials and settings rows in one
// transaction.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	rec := userRecord{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
		Bio:         user.Bio,
		Website:     user.Website,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("postgres: inserting user %s: %w", user.ID, translateUnique(err))
		}
		if err := tx.Create(&socialsRecord{UserID: user.ID}).Error; err != nil {
			return fmt.Errorf("postgres: inserting socials for %s: %w", user.ID, err)
		}
		if err := tx.Create(&settingsRecord{UserID: user.ID, Data: datatypes.JSON("{}")}).Error; err != nil {
			return fmt.Errorf("postgres: inserting settings for %s: %w", user.ID, err)
		}
		return nil
	})
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var rec userRecord
	err := db.gorm.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return rec.toModel(), nil
}

// FindUser matches the identifier as a username first, then as an ID.
func (db *DB) FindUser(ctx context.Context, identifier string) (*model.User, error) {
	var rec userRecord
	err := db.gorm.WithContext(ctx).Where("username = ?", identifier).Take(&rec).Error
	if err == nil {
		return rec.toModel(), nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("postgres: finding user %s: %w", identifier, err)
	}
	return db.GetUserByID(ctx, identifier)
}

func (db *DB) UpdateUser(ctx context.Context, id string, update repository.UserUpdate) error {
	changes := map[string]any{"updated_at": time.Now().UTC()}
	set := func(column string, value *string) {
		if value != nil {
			changes[column] = *value
		}
	}
	set("username", update.Username)
	set("email", update.Email)
	set("display_name", update.DisplayName)
	set("avatar", update.Avatar)
	set("bio", update.Bio)
	set("website", update.Website)

	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&userRecord{}).Where("id = ?", id).Updates(changes)
		if result.Error != nil {
			return fmt.Errorf("postgres: updating user %s: %w", id, translateUnique(result.Error))
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("user", id)
		}

		if s := update.Socials; s != nil {
			rec := socialsRecord{
				UserID:    id,
				GitHub:    s.GitHub,
				YouTube:   s.YouTube,
				LinkedIn:  s.LinkedIn,
				Instagram: s.Instagram,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"github", "youtube", "linkedin", "instagram"}),
			}).Create(&rec).Error
			if err != nil {
				return fmt.Errorf("postgres: upserting socials for %s: %w", id, err)
			}
		}
		return nil
	})
}

// DeleteUser removes the user row; ON DELETE CASCADE takes the rest.
func (db *DB) DeleteUser(ctx context.Context, id string) (int64, error) {
	result := db.gorm.WithContext(ctx).Where("id = ?", id).Delete(&userRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("postgres: deleting user %s: %w", id, result.Error)
	}
	return result.RowsAffected, nil
}

func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := db.gorm.WithContext(ctx).Model(&userRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("postgres: counting users: %w", err)
	}
	return n, nil
}

func (db *DB) GetSocials(ctx context.Context, userID string) (*model.Socials, error) {
	var rec socialsRecord
	err := db.gorm.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("postgres: getting socials for %s: %w", userID, err)
	}
	return &model.Socials{
		GitHub:    rec.GitHub,
		YouTube:   rec.YouTube,
		LinkedIn:  rec.LinkedIn,
		Instagram: rec.Instagram,
	}, nil
}

func (db *DB) GetSettings(ctx context.Context, userID string) (map[string]any, error) {
	var rec settingsRecord
	err := db.gorm.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error
	if err != nil {
		if isNotFound(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("postgres: getting settings for %s: %w", userID, err)
	}

	data := map[string]any{}
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return nil, fmt.Errorf("postgres: decoding settings for %s: %w", userID, err)
		}
	}
	return data, nil
}

func (db *DB) SaveSettings(ctx context.Context, userID string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("postgres: encoding settings for %s: %w", userID, err)
	}
	rec := settingsRecord{UserID: userID, Data: datatypes.JSON(raw)}
	err = db.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("postgres: saving settings for %s: %w", userID, err)
	}
	return nil
}

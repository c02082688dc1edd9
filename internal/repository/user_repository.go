package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"day-organiser/internal/model"
)

// UserRepository keeps the Telegram chats that receive digests.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram records the chat of telegramID, refreshing the profile
// fields when the chat is already known.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	user := model.User{
		TelegramID: telegramID,
		FirstName:  firstName,
		LastName:   lastName,
		Username:   username,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "username", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, errors.Wrapf(err, "upsert user %d", telegramID)
	}

	var stored model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&stored).Error; err != nil {
		return nil, errors.Wrapf(err, "reload user %d", telegramID)
	}
	return &stored, nil
}

// ListAll returns every known chat user.
func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

// Remove forgets a chat so it stops receiving digests.
func (r *UserRepository) Remove(ctx context.Context, telegramID int64) error {
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).Delete(&model.User{}).Error; err != nil {
		return errors.Wrap(err, "delete user")
	}
	return nil
}

package repository

import (
	"time"

	"snapconnect-backend/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FCMTokenRepository defines the interface for FCM token operations
type FCMTokenRepository interface {
	SaveToken(accountID, token, deviceInfo string) error
	GetTokensByAccountID(accountID string) ([]domain.FCMToken, error)
	DeleteToken(token string) error
}

type fcmTokenRepository struct {
	db *gorm.DB
}

func NewFCMTokenRepository(db *gorm.DB) FCMTokenRepository {
	return &fcmTokenRepository{db: db}
}

// SaveToken saves or updates an FCM token for an account (atomic upsert)
func (r *fcmTokenRepository) SaveToken(accountID, token, deviceInfo string) error {
	fcmToken := &domain.FCMToken{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id", "device_info", "updated_at"}),
	}).Create(fcmToken).Error
}

func (r *fcmTokenRepository) GetTokensByAccountID(accountID string) ([]domain.FCMToken, error) {
	var tokens []domain.FCMToken
	err := r.db.Where("account_id = ?", accountID).Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *fcmTokenRepository) DeleteToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&domain.FCMToken{}).Error
}

package repository

import (
	"time"

	"snapconnect-backend/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository defines read access to accounts and persona profiles.
// Persona rows are owned by the persona authoring service; this core treats
// them as read-only.
type AccountRepository interface {
	// Create creates an account (and its persona profile, if any)
	Create(account *domain.Account, persona *domain.Persona) error

	// FindByID finds an account by its ID, nil if missing
	FindByID(id string) (*domain.Account, error)

	// GetPersona returns the persona profile for an ai_persona account
	GetPersona(accountID string) (*domain.Persona, error)

	// ListPersonas returns all ai_persona accounts with their profiles
	ListPersonas() ([]*domain.Persona, error)

	// ListEligibleHumans returns humans eligible for proactive outreach:
	// anyone who has exchanged at least one message, or was created within
	// the onboarding window
	ListEligibleHumans(now time.Time, onboardingWindow time.Duration) ([]*domain.Account, error)
}

// SocialGraph answers whether two human accounts are connected. Persona
// sends bypass it entirely.
type SocialGraph interface {
	AreConnected(accountA, accountB string) (bool, error)
	AcceptedFriendIDs(accountID string) ([]string, error)
}

type gormAccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &gormAccountRepository{db: db}
}

func (r *gormAccountRepository) Create(account *domain.Account, persona *domain.Persona) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		if persona != nil {
			persona.AccountID = account.ID
			if err := persona.Validate(); err != nil {
				return err
			}
			persona.CreatedAt = time.Now()
			persona.UpdatedAt = time.Now()
			return tx.Create(persona).Error
		}
		return nil
	})
}

func (r *gormAccountRepository) FindByID(id string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *gormAccountRepository) GetPersona(accountID string) (*domain.Persona, error) {
	var persona domain.Persona
	err := r.db.Where("account_id = ?", accountID).First(&persona).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &persona, nil
}

func (r *gormAccountRepository) ListPersonas() ([]*domain.Persona, error) {
	var personas []*domain.Persona
	err := r.db.Find(&personas).Error
	return personas, err
}

func (r *gormAccountRepository) ListEligibleHumans(now time.Time, onboardingWindow time.Duration) ([]*domain.Account, error) {
	var accounts []*domain.Account
	cutoff := now.Add(-onboardingWindow)
	err := r.db.
		Where("kind = ?", domain.KindHuman).
		Where(
			r.db.Where("created_at >= ?", cutoff).
				Or("id IN (?)", r.db.Table("messages").Select("sender_id")).
				Or("id IN (?)", r.db.Table("messages").Select("receiver_id")),
		).
		Find(&accounts).Error
	return accounts, err
}

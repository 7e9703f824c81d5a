package repository

import (
	"snapconnect-backend/internal/account/domain"

	"gorm.io/gorm"
)

// gormSocialGraph is a read-only view over the friendship table. Friendship
// CRUD lives in the social feature outside this core.
type gormSocialGraph struct {
	db *gorm.DB
}

func NewSocialGraph(db *gorm.DB) SocialGraph {
	return &gormSocialGraph{db: db}
}

// AreConnected reports whether an accepted friendship exists in either direction
func (g *gormSocialGraph) AreConnected(accountA, accountB string) (bool, error) {
	var count int64
	err := g.db.Model(&domain.Friendship{}).
		Where("status = ?", domain.FriendshipAccepted).
		Where(
			g.db.Where("account_id = ? AND friend_id = ?", accountA, accountB).
				Or("account_id = ? AND friend_id = ?", accountB, accountA),
		).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (g *gormSocialGraph) AcceptedFriendIDs(accountID string) ([]string, error) {
	var friendships []domain.Friendship
	err := g.db.
		Where("status = ?", domain.FriendshipAccepted).
		Where("account_id = ? OR friend_id = ?", accountID, accountID).
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(friendships))
	for _, f := range friendships {
		if f.AccountID == accountID {
			ids = append(ids, f.FriendID)
		} else {
			ids = append(ids, f.AccountID)
		}
	}
	return ids, nil
}

package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FindAccountByLogin returns the account with its ordered memberships.
func (s *GORMStore) FindAccountByLogin(ctx context.Context, login string) (*Account, error) {
	var acct Account
	if err := s.db.WithContext(ctx).Where("login = ?", login).First(&acct).Error; err != nil {
		return nil, convertNotFoundError(err, ErrAccountNotFound)
	}
	if err := s.loadGroups(ctx, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// CreateAccount persists a new account with its primary and secondary
// memberships in a single transaction.
func (s *GORMStore) CreateAccount(ctx context.Context, acct *Account, primaryGroupID string, otherGroupIDs []string) (string, error) {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(acct).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrDuplicateAccount
			}
			return err
		}

		// Resolvers may hand over the same group id more than once;
		// only the first occurrence counts for ordering.
		position := 0
		seen := make(map[string]bool)
		for _, groupID := range append([]string{primaryGroupID}, otherGroupIDs...) {
			if seen[groupID] {
				continue
			}
			seen[groupID] = true
			member := &Membership{AccountID: acct.ID, GroupID: groupID, Position: position}
			if err := tx.Create(member).Error; err != nil {
				return err
			}
			position++
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

// UpdateAttributes overwrites the synchronized attribute fields. Callers
// decide which values to carry over; this writes all of them.
func (s *GORMStore) UpdateAttributes(ctx context.Context, accountID string, attrs Attributes) error {
	result := s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", accountID).Updates(map[string]any{
		"first_name":  attrs.FirstName,
		"middle_name": attrs.MiddleName,
		"last_name":   attrs.LastName,
		"email":       attrs.Email,
		"institution": attrs.Institution,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AddGroups appends memberships after the existing ones. Groups the
// account already belongs to are skipped.
func (s *GORMStore) AddGroups(ctx context.Context, accountID string, groupIDs ...string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := membershipsOf(tx, accountID)
		if err != nil {
			return err
		}
		present := make(map[string]bool, len(existing))
		next := 0
		for _, m := range existing {
			present[m.GroupID] = true
			if m.Position >= next {
				next = m.Position + 1
			}
		}
		for _, groupID := range groupIDs {
			if present[groupID] {
				continue
			}
			member := &Membership{AccountID: accountID, GroupID: groupID, Position: next}
			if err := tx.Create(member).Error; err != nil {
				return err
			}
			present[groupID] = true
			next++
		}
		return nil
	})
}

// RemoveGroups drops memberships and closes the position gaps so the
// remaining groups stay contiguously ordered.
func (s *GORMStore) RemoveGroups(ctx context.Context, accountID string, groupIDs ...string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		drop[id] = true
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := membershipsOf(tx, accountID)
		if err != nil {
			return err
		}
		if err := tx.Where("account_id = ? AND group_id IN ?", accountID, groupIDs).
			Delete(&Membership{}).Error; err != nil {
			return err
		}
		position := 0
		for _, m := range existing {
			if drop[m.GroupID] {
				continue
			}
			if m.Position != position {
				if err := tx.Model(&Membership{}).
					Where("account_id = ? AND group_id = ?", accountID, m.GroupID).
					Update("position", position).Error; err != nil {
					return err
				}
			}
			position++
		}
		return nil
	})
}

// SetDefaultGroup moves groupID to position zero, shifting the groups
// that were in front of it.
func (s *GORMStore) SetDefaultGroup(ctx context.Context, accountID, groupID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := membershipsOf(tx, accountID)
		if err != nil {
			return err
		}
		current := -1
		for _, m := range existing {
			if m.GroupID == groupID {
				current = m.Position
				break
			}
		}
		if current < 0 {
			return ErrNotMember
		}
		if current == 0 {
			return nil
		}
		for _, m := range existing {
			var position int
			switch {
			case m.GroupID == groupID:
				position = 0
			case m.Position < current:
				position = m.Position + 1
			default:
				continue
			}
			if err := tx.Model(&Membership{}).
				Where("account_id = ? AND group_id = ?", accountID, m.GroupID).
				Update("position", position).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListAccounts returns all accounts with their ordered memberships.
func (s *GORMStore) ListAccounts(ctx context.Context) ([]*Account, error) {
	var accounts []*Account
	if err := s.db.WithContext(ctx).Order("login").Find(&accounts).Error; err != nil {
		return nil, err
	}
	for _, acct := range accounts {
		if err := s.loadGroups(ctx, acct); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// loadGroups fills acct.Groups from the membership rows, ordered by
// position so index zero is the default group.
func (s *GORMStore) loadGroups(ctx context.Context, acct *Account) error {
	var groups []Group
	err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.group_id = groups.id").
		Where("memberships.account_id = ?", acct.ID).
		Order("memberships.position").
		Find(&groups).Error
	if err != nil {
		return err
	}
	acct.Groups = groups
	return nil
}

func membershipsOf(tx *gorm.DB, accountID string) ([]Membership, error) {
	var members []Membership
	err := tx.Where("account_id = ?", accountID).Order("position").Find(&members).Error
	return members, err
}

// isUniqueConstraintError checks if the error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite or PostgreSQL unique constraint errors
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint")
}

// convertNotFoundError converts gorm.ErrRecordNotFound to the appropriate domain error.
func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}

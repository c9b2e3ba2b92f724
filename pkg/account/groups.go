package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateGroup creates a group, or returns the id of the existing group
// of that name. With failOnDuplicate set, an existing name is an error
// instead.
func (s *GORMStore) CreateGroup(ctx context.Context, name string, perms Permissions, failOnDuplicate bool) (string, error) {
	var id string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Group
		err := tx.Where("name = ?", name).First(&existing).Error
		if err == nil {
			if failOnDuplicate {
				return ErrDuplicateGroup
			}
			id = existing.ID
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		group := Group{
			ID:          uuid.New().String(),
			Name:        name,
			Permissions: perms,
			CreatedAt:   time.Now(),
		}
		if err := tx.Create(&group).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrDuplicateGroup
			}
			return err
		}
		id = group.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetGroup returns a group by name.
func (s *GORMStore) GetGroup(ctx context.Context, name string) (*Group, error) {
	var group Group
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&group).Error; err != nil {
		return nil, convertNotFoundError(err, ErrGroupNotFound)
	}
	return &group, nil
}

// GetGroupByID returns a group by id.
func (s *GORMStore) GetGroupByID(ctx context.Context, id string) (*Group, error) {
	var group Group
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&group).Error; err != nil {
		return nil, convertNotFoundError(err, ErrGroupNotFound)
	}
	return &group, nil
}

// ListGroups returns all groups ordered by name.
func (s *GORMStore) ListGroups(ctx context.Context) ([]*Group, error) {
	var groups []*Group
	if err := s.db.WithContext(ctx).Order("name").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

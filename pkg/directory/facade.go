package directory

import (
	"context"

	"github.com/openlabtools/labauth/internal/logger"
)

// Facade aggregates multiple directory calls into the higher-level
// queries the provisioning and authentication layers need.
//
// Remote failures propagate as *RemoteError; the caller decides whether
// to degrade. Missing entities degrade inside the facade wherever a
// sensible partial result exists.
type Facade struct {
	client Client
}

// NewFacade creates a facade over the given client, usually a
// *CachedClient.
func NewFacade(client Client) *Facade {
	return &Facade{client: client}
}

// FindUserWithUnit fetches a user and joins their affiliation unit.
//
// Returns nil when the user is absent. A missing unit is tolerated: the
// user is still useful without it, so the result carries a nil Unit and a
// warning is logged.
func (f *Facade) FindUserWithUnit(ctx context.Context, login string) (*UserWithUnit, error) {
	user, err := f.client.GetUser(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	result := &UserWithUnit{User: user}
	if user.UnitKey == "" {
		return result, nil
	}

	unit, err := f.client.GetUnit(ctx, user.UnitKey)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		logger.Warn("affiliation unit not found in directory",
			logger.KeyLogin, login,
			logger.KeyGroup, user.UnitKey)
		return result, nil
	}

	result.Unit = unit
	return result, nil
}

// FindActiveSystems returns the systems granted to login whose active
// flag is set. Systems missing from the directory are skipped.
func (f *Facade) FindActiveSystems(ctx context.Context, login string) ([]System, error) {
	return f.findSystems(ctx, login, func(s *System, _ PrivilegeLevel) bool {
		return s.Active
	})
}

// FindActiveSystemsWithAutonomy returns active granted systems,
// additionally requiring autonomous standing where the system demands it:
// autonomy-required systems need Autonomous or SuperUser privilege,
// others need anything but Deactivated.
func (f *Facade) FindActiveSystemsWithAutonomy(ctx context.Context, login string) ([]System, error) {
	return f.findSystems(ctx, login, func(s *System, priv PrivilegeLevel) bool {
		if !s.Active {
			return false
		}
		if s.AutonomyRequired {
			return priv == PrivilegeAutonomous || priv == PrivilegeSuperUser
		}
		return priv != PrivilegeDeactivated
	})
}

func (f *Facade) findSystems(ctx context.Context, login string, keep func(*System, PrivilegeLevel) bool) ([]System, error) {
	rights, err := f.client.GetUserRights(ctx, login)
	if err != nil {
		return nil, err
	}

	systems := make([]System, 0, len(rights))
	for _, right := range rights {
		system, err := f.client.GetSystem(ctx, right.SystemID)
		if err != nil {
			return nil, err
		}
		if system == nil {
			logger.Warn("granted system not found in directory",
				logger.KeyLogin, login,
				"system_id", right.SystemID)
			continue
		}
		if keep(system, right.Privilege) {
			systems = append(systems, *system)
		}
	}
	return systems, nil
}

// FilterByFacilityAndType retains only systems whose facility id and type
// are both whitelisted.
//
// An empty whitelist blocks everything. This is deliberately fail-closed
// and easy to trip over in configuration, hence the loud warning.
func FilterByFacilityAndType(systems []System, facilities []int, types []string) []System {
	if len(facilities) == 0 || len(types) == 0 {
		if len(systems) > 0 {
			logger.Warn("facility/type whitelist is empty: all systems filtered out; " +
				"set the facility and type whitelists if system-to-group mapping is wanted")
		}
		return []System{}
	}

	facilitySet := make(map[int]bool, len(facilities))
	for _, id := range facilities {
		facilitySet[id] = true
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	kept := make([]System, 0, len(systems))
	for _, s := range systems {
		if facilitySet[s.FacilityID] && typeSet[s.Type] {
			kept = append(kept, s)
		}
	}
	return kept
}

// CheckAuthentication validates credentials against the directory.
// Errors are *RemoteError and propagate untouched.
func (f *Facade) CheckAuthentication(ctx context.Context, login, password string) (bool, error) {
	return f.client.Authenticate(ctx, login, password)
}

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for structural problems: invalid
// enum values, missing required fields, and resolver references that
// point nowhere.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return validateGroups(&cfg.Groups)
}

func validateGroups(cfg *GroupsConfig) error {
	for name, rc := range cfg.Resolvers {
		switch rc.Kind {
		case "literal":
			if rc.Groups == "" {
				return fmt.Errorf("resolver %q: literal resolvers need a groups list", name)
			}
		case "composite":
			if len(rc.Members) == 0 {
				return fmt.Errorf("resolver %q: composite resolvers need members", name)
			}
			for _, member := range rc.Members {
				if member == name {
					return fmt.Errorf("resolver %q: composite cannot include itself", name)
				}
				if _, ok := cfg.Resolvers[member]; !ok {
					return fmt.Errorf("resolver %q: unknown member %q", name, member)
				}
			}
		}
	}

	for _, binding := range []struct {
		field string
		name  string
	}{
		{"new_user", cfg.NewUser},
		{"sync", cfg.Sync},
		{"default_group", cfg.DefaultGroup},
	} {
		if binding.name == "" {
			continue
		}
		if _, ok := cfg.Resolvers[binding.name]; !ok {
			return fmt.Errorf("groups.%s references unknown resolver %q", binding.field, binding.name)
		}
	}
	return nil
}

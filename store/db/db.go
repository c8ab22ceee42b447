// Package db selects the persistence driver from the profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/pawdesk/pawdesk/internal/profile"
	"github.com/pawdesk/pawdesk/store"
	"github.com/pawdesk/pawdesk/store/db/memory"
	"github.com/pawdesk/pawdesk/store/db/postgres"
)

// NewDriver creates a new store driver based on the profile.
// PostgreSQL is the production backend; the memory driver exists for
// development and tests only.
func NewDriver(p *profile.Profile) (store.Driver, error) {
	switch p.Driver {
	case "postgres":
		driver, err := postgres.NewDB(p)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create postgres driver")
		}
		return driver, nil
	case "memory":
		return memory.NewDB(), nil
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'memory' are supported", p.Driver)
	}
}

package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/uptrace/bun"

	casbinbunadapter "github.com/hulugan-ph/hulugan/internal/auth/bunadapter"
)

//go:embed model.conf
var casbinModelContent string

// InitEnforcer creates and initializes a Casbin enforcer with embedded model and database adapter.
// The Bun adapter shares the existing *bun.DB connection pool.
func InitEnforcer(db *bun.DB) (casbin.IEnforcer, error) {
	adapter, err := casbinbunadapter.NewAdapter(db)
	if err != nil {
		return nil, fmt.Errorf("create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}

	return enforcer, nil
}

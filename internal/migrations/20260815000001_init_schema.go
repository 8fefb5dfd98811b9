package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	casbinbunadapter "github.com/hulugan-ph/hulugan/internal/auth/bunadapter"
	"github.com/hulugan-ph/hulugan/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20260815000001, down_20260815000001)
}

// up_20260815000001 initializes the full database schema
func up_20260815000001(ctx context.Context, db *bun.DB) error {
	// 1. Groups table
	fmt.Print(" [up] creating groups table...")
	_, err := db.NewCreateTable().
		Model((*models.Group)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create groups table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_groups_updated_at ON groups(updated_at)`)
	if err != nil {
		return fmt.Errorf("failed to create index on updated_at: %w", err)
	}

	// Range guard on paid_weeks (PostgreSQL only).
	// SQLite does not support ADD CONSTRAINT in ALTER TABLE; the service
	// layer validates before every write regardless of dialect.
	if IsPostgreSQL(db) {
		_, err = db.Exec(`
			ALTER TABLE groups
			ADD CONSTRAINT chk_groups_paid_weeks CHECK (paid_weeks >= 0 AND paid_weeks <= weeks_total)
		`)
		if err != nil {
			return fmt.Errorf("failed to add paid_weeks constraint: %w", err)
		}
	}
	fmt.Println(" OK")

	// 2. Auth tables
	fmt.Print(" [up] creating auth tables...")

	// Users
	_, err = db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email)`)

	// User Roles
	q := db.NewCreateTable().Model((*models.UserRole)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`)
		q = q.ForeignKey(`(assigned_by) REFERENCES users(id)`)
	}
	_, err = q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create user_roles: %w", err)
	}

	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_roles_user_id ON user_roles(user_id)`)

	if IsPostgreSQL(db) {
		db.Exec(`ALTER TABLE user_roles ADD CONSTRAINT fk_user_roles_user_id FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`)
		db.Exec(`ALTER TABLE user_roles ADD CONSTRAINT fk_user_roles_assigned_by FOREIGN KEY (assigned_by) REFERENCES users(id)`)
	}

	// Sessions
	q = db.NewCreateTable().Model((*models.Session)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`)
	}
	_, err = q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create sessions: %w", err)
	}

	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_token_hash ON sessions(token_hash)`)
	db.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`)

	if IsPostgreSQL(db) {
		db.Exec(`ALTER TABLE sessions ADD CONSTRAINT fk_sessions_user_id FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`)
	}

	// Login Tokens
	_, err = db.NewCreateTable().Model((*models.LoginToken)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create login_tokens: %w", err)
	}
	db.Exec(`CREATE INDEX IF NOT EXISTS idx_login_tokens_expires_at ON login_tokens(expires_at)`)

	// Casbin Rules
	_, err = db.NewCreateTable().Model((*casbinbunadapter.CasbinRule)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create casbin_rules: %w", err)
	}

	fmt.Println(" OK")
	return nil
}

// down_20260815000001 drops all tables
func down_20260815000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping all tables...")

	tables := []string{
		"casbin_rules",
		"login_tokens",
		"sessions",
		"user_roles",
		"users",
		"groups",
	}

	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}

	fmt.Println(" OK")
	return nil
}

package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	casbinbunadapter "github.com/hulugan-ph/hulugan/internal/auth/bunadapter"
)

func init() {
	Migrations.MustRegister(up_20260815000002, down_20260815000002)
}

// up_20260815000002 seeds the default fund access policies
func up_20260815000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding fund policies...")

	defaultPolicies := []casbinbunadapter.CasbinRule{
		// admin role: full fund access
		{Ptype: "p", V0: "role:admin", V1: "fund", V2: "read"},
		{Ptype: "p", V0: "role:admin", V1: "fund", V2: "write"},

		// viewer role: read-only fund access
		{Ptype: "p", V0: "role:viewer", V1: "fund", V2: "read"},
	}
	if _, err := db.NewInsert().Model(&defaultPolicies).On("CONFLICT (ptype, v0, v1, v2, v3, v4, v5) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed fund policies: %w", err)
	}

	fmt.Println(" OK")
	return nil
}

// down_20260815000002 removes the seeded fund policies
func down_20260815000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing fund policies...")

	_, err := db.NewDelete().
		Model((*casbinbunadapter.CasbinRule)(nil)).
		Where("ptype = ?", "p").
		Where("v1 = ?", "fund").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove fund policies: %w", err)
	}

	fmt.Println(" OK")
	return nil
}

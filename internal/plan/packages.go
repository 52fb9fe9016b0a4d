package plan

import (
	"strings"

	"github.com/google/uuid"

	"dumpmigrate/internal/coerce"
	"dumpmigrate/internal/schema"
	"dumpmigrate/internal/sqldump"
)

// packageTables is the source-table fallback chain for membership packages.
var packageTables = []string{"packages", "plans", "memberships_packages"}

// Placeholder values for packages the dump references but never defines.
const (
	placeholderDuration = 30
	placeholderAccess   = "standard"
)

func buildPackages(dump, tenantID string, p *Plan) {
	var rows []PackageRow
	index := make(map[string]struct{})

	if block, ok := sqldump.ExtractFirst(dump, packageTables...); ok {
		for _, tup := range block.Tuples {
			name := schema.PackageName.PickString(block.Columns, tup)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, dup := index[key]; dup {
				continue
			}
			index[key] = struct{}{}

			row := PackageRow{
				Name:         name,
				DurationDays: placeholderDuration,
				AccessLevel:  placeholderAccess,
				GymID:        tenantID,
			}
			if f, ok := coerce.Number(schema.PackagePrice.PickString(block.Columns, tup)); ok {
				row.Price = f
			}
			if n, ok := coerce.Int(schema.PackageDuration.PickString(block.Columns, tup)); ok {
				row.DurationDays = n
			}
			if v := schema.PackageAccess.PickString(block.Columns, tup); v != "" {
				row.AccessLevel = strings.ToLower(v)
			}
			rows = append(rows, row)
		}
	}

	// Every by-name package reference must land on a row, so references the
	// dump never defined get placeholder rows. Canonical ids are assumed to
	// exist in the target store already.
	for _, m := range p.Members {
		ref := m.PackageRef
		if ref == "" || CanonicalID(ref) {
			continue
		}
		key := strings.ToLower(ref)
		if _, ok := index[key]; ok {
			continue
		}
		index[key] = struct{}{}
		rows = append(rows, PackageRow{
			Name:         ref,
			Price:        0,
			DurationDays: placeholderDuration,
			AccessLevel:  placeholderAccess,
			GymID:        tenantID,
		})
	}
	p.Packages = rows
}

// CanonicalID reports whether a legacy package reference is already a
// canonical record id, in which case it is kept as a literal instead of
// being rewritten into a by-name lookup.
func CanonicalID(ref string) bool {
	_, err := uuid.Parse(ref)
	return err == nil
}

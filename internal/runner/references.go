package runner

import (
	"context"
	"fmt"
	"strings"

	"dumpmigrate/internal/plan"
	"dumpmigrate/internal/store"
)

// resolvePackages makes every plan package exist in the store and returns a
// lowercase-name to id map. Packages already present keep their stored id and
// their stored pricing; only missing ones are created from the plan rows.
func resolvePackages(ctx context.Context, st store.Store, pkgs []plan.PackageRow) (map[string]string, int, error) {
	ids := make(map[string]string, len(pkgs))
	created := 0
	for _, row := range pkgs {
		found, err := st.Find(ctx, "packages", store.Filter{"name": row.Name})
		if err != nil {
			return nil, created, fmt.Errorf("find package %q: %w", row.Name, err)
		}
		if id := firstID(found); id != "" {
			ids[strings.ToLower(row.Name)] = id
			continue
		}

		id := newID()
		rec := store.Row{
			"id":            id,
			"name":          row.Name,
			"price":         row.Price,
			"duration_days": row.DurationDays,
		}
		// Omitted columns fall through to the schema defaults.
		if row.AccessLevel != "" {
			rec["access_level"] = row.AccessLevel
		}
		if row.GymID != "" {
			rec["gym_id"] = row.GymID
		}
		if _, err := st.Upsert(ctx, "packages", []store.Row{rec}, []string{"name"}); err != nil {
			return nil, created, fmt.Errorf("create package %q: %w", row.Name, err)
		}
		created++
		ids[strings.ToLower(row.Name)] = id
	}
	return ids, created, nil
}

// resolveRoles makes a role row exist for every distinct staff role and
// returns a lowercase-name to id map.
func resolveRoles(ctx context.Context, st store.Store, staff []plan.StaffRecord, tenantID string) (map[string]string, int, error) {
	var names []string
	seen := make(map[string]bool)
	for _, s := range staff {
		name := strings.ToLower(strings.TrimSpace(s.Role))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	ids := make(map[string]string, len(names))
	created := 0
	for _, name := range names {
		found, err := st.Find(ctx, "roles", store.Filter{"name": name})
		if err != nil {
			return nil, created, fmt.Errorf("find role %q: %w", name, err)
		}
		if id := firstID(found); id != "" {
			ids[name] = id
			continue
		}

		id := newID()
		rec := store.Row{"id": id, "name": name}
		if tenantID != "" {
			rec["gym_id"] = tenantID
		}
		if _, err := st.Upsert(ctx, "roles", []store.Row{rec}, []string{"name"}); err != nil {
			return nil, created, fmt.Errorf("create role %q: %w", name, err)
		}
		created++
		ids[name] = id
	}
	return ids, created, nil
}

// mapMemberPackages returns a copy of the members with every named package
// reference swapped for its resolved id. Canonical ids pass through as-is.
// References that resolution somehow missed are cleared and reported.
func mapMemberPackages(members []plan.MemberRecord, pkgIDs map[string]string) ([]plan.MemberRecord, []string) {
	out := make([]plan.MemberRecord, len(members))
	copy(out, members)

	var unmapped []string
	for i := range out {
		ref := out[i].PackageRef
		if ref == "" || plan.CanonicalID(ref) {
			continue
		}
		if id, ok := pkgIDs[strings.ToLower(ref)]; ok {
			out[i].PackageRef = id
		} else {
			unmapped = append(unmapped, ref)
			out[i].PackageRef = ""
		}
	}
	return out, unmapped
}

// mapStaffRoles returns a copy of the staff with RoleID filled from the
// resolved role map.
func mapStaffRoles(staff []plan.StaffRecord, roleIDs map[string]string) []plan.StaffRecord {
	out := make([]plan.StaffRecord, len(staff))
	copy(out, staff)

	for i := range out {
		if id, ok := roleIDs[strings.ToLower(strings.TrimSpace(out[i].Role))]; ok {
			out[i].RoleID = id
		}
	}
	return out
}

// firstID pulls the id column out of the first row, tolerating stores that
// hand back ids as []byte.
func firstID(rows []store.Row) string {
	if len(rows) == 0 {
		return ""
	}
	switch v := rows[0]["id"].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

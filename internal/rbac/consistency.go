package rbac

import "sort"

// Drift lists differences between the descriptive catalog and the backend's
// stored role/permission table.
type Drift struct {
	MissingRemote []string `json:"missing_remote"`
	UnknownRemote []string `json:"unknown_remote"`
}

// Empty reports whether the two tables agree.
func (d Drift) Empty() bool {
	return len(d.MissingRemote) == 0 && len(d.UnknownRemote) == 0
}

// CompareRemote reports grants present on one side only. Entries are keyed as
// "<role>/<permission>::<resource>".
func CompareRemote(catalog *Catalog, remote []RemoteEntry) Drift {
	local := make(map[string]struct{})
	for _, role := range AllRoles() {
		for _, e := range catalog.ListEntries(role) {
			local[role.String()+"/"+e.Key()] = struct{}{}
		}
	}
	stored := make(map[string]struct{}, len(remote))
	for _, e := range remote {
		stored[e.Role.String()+"/"+e.Key()] = struct{}{}
	}

	var d Drift
	for k := range local {
		if _, ok := stored[k]; !ok {
			d.MissingRemote = append(d.MissingRemote, k)
		}
	}
	for k := range stored {
		if _, ok := local[k]; !ok {
			d.UnknownRemote = append(d.UnknownRemote, k)
		}
	}
	sort.Strings(d.MissingRemote)
	sort.Strings(d.UnknownRemote)
	return d
}

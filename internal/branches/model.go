// Package branches tracks which organizational branch a user is working in.
package branches

import "time"

// Branch represents a branch the user belongs to.
type Branch struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// Resolve picks the active branch: the stored selection when it is still
// available, otherwise the primary branch, otherwise the first branch.
// It returns nil when branches is empty.
func Resolve(stored *string, branches []Branch) *Branch {
	if len(branches) == 0 {
		return nil
	}
	if stored != nil && *stored != "" {
		if b := find(branches, *stored); b != nil {
			return b
		}
	}
	for i := range branches {
		if branches[i].IsPrimary {
			return &branches[i]
		}
	}
	return &branches[0]
}

func find(branches []Branch, id string) *Branch {
	for i := range branches {
		if branches[i].ID == id {
			return &branches[i]
		}
	}
	return nil
}

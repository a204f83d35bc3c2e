package backend

import (
	"context"

	"github.com/duriyam/operate/internal/branches"
)

var _ branches.Repository = (*Client)(nil)

// ListForUser returns the branches the user belongs to.
func (c *Client) ListForUser(ctx context.Context, userID string) ([]branches.Branch, error) {
	var out []branches.Branch
	err := c.rpc(ctx, "get_user_branches", userArgs{UserID: userID}, &out)
	return out, err
}

// Package pgclient reads memberships and superadmins from a hosted PostgreSQL
// database, for deployments where the tables live outside the service.
package pgclient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/orbo-dev/orbo/internal/access"
)

// Client wraps a PostgreSQL connection
type Client struct {
	db *sql.DB
}

// NewClient creates a new PostgreSQL client
func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Client{db: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Connect creates a client and verifies the database answers before it is
// used as a membership source.
func Connect(ctx context.Context, connectionString string) (*Client, error) {
	c, err := NewClient(connectionString)
	if err != nil {
		return nil, err
	}
	if err := c.db.PingContext(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to connect to membership database: %w", err)
	}
	return c, nil
}

// GetMembership implements access.MembershipStore against the memberships table.
func (c *Client) GetMembership(ctx context.Context, userID, orgID string) (*access.Membership, error) {
	const query = `SELECT role FROM memberships WHERE user_id = $1 AND org_id = $2 LIMIT 1`

	var raw string
	if err := c.db.QueryRowContext(ctx, query, userID, orgID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query membership: %w", err)
	}

	role, err := access.ParseRole(raw)
	if err != nil {
		return nil, fmt.Errorf("membership for user %s in org %s: %w", userID, orgID, err)
	}
	return &access.Membership{Role: role}, nil
}

// IsSuperadmin implements access.SuperadminStore against the superadmins table.
func (c *Client) IsSuperadmin(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM superadmins WHERE user_id = $1)`

	var ok bool
	if err := c.db.QueryRowContext(ctx, query, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to query superadmin: %w", err)
	}
	return ok, nil
}

package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTokenPath returns ~/.anchorlog/admin.token.
func DefaultTokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".anchorlog", "admin.token"), nil
}

// SaveToken writes an admin token to path with owner-only permissions,
// creating the parent directory when needed.
func SaveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// LoadToken reads an admin token previously written by SaveToken.
func LoadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return tok, nil
}

// WithAdminTokenFile loads the admin token from path.
func WithAdminTokenFile(path string) Option {
	return func(c *Client) error {
		tok, err := LoadToken(path)
		if err != nil {
			return err
		}
		c.adminToken = tok
		return nil
	}
}

package remote

import (
	"os"
	"path/filepath"
	"strings"
)

// FileTokenSource reads the session bearer token from a file on each call.
// A missing or unreadable file yields an empty token.
func FileTokenSource(path string) TokenSource {
	return func() string {
		if strings.TrimSpace(path) == "" {
			return ""
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
}

// SaveSessionToken persists the token for later requests. The file is
// user-readable only; tokens are credentials.
func SaveSessionToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.TrimSpace(token)+"\n"), 0o600)
}

// ClearSessionToken removes a persisted token, tolerating its absence.
func ClearSessionToken(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

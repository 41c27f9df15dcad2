package testdb

import (
	"net/url"
	"os"
)

// databaseURLEnvVars lists the variables checked for a test database URL,
// in order of preference.
var databaseURLEnvVars = []string{"DATABASE_URL", "SCRY_TEST_DB_URL", "SCRY_DATABASE_URL"}

// GetTestDatabaseURL returns the first database URL set in the environment,
// or "" when none is.
func GetTestDatabaseURL() string {
	for _, name := range databaseURLEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ShouldSkipDatabaseTest reports whether PostgreSQL tests should be skipped.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// MaskDatabaseURL hides the password of a database URL for logging.
func MaskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	if parsed.User != nil {
		if _, ok := parsed.User.Password(); ok {
			parsed.User = url.UserPassword(parsed.User.Username(), "****")
		}
	}
	return parsed.String()
}

package datastore

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// KeyDelimiter separates the namespace from the key, and may separate
	// segments within a key.
	KeyDelimiter = ":"

	keyMaxLength = 1024 // Practical limit (avoid large keys).
)

var (
	ErrInvalidKey = errors.New("datastore: invalid key")

	// Glob metacharacters are excluded so that a stored key never matches
	// more than itself in a pattern.
	keyRegex = regexp.MustCompile(`^[a-zA-Z0-9:_\-.]+$`)
)

// ValidateKey reports whether key can be stored.
//   - Must not be empty or exceed 1024 characters.
//   - Must only contain letters, digits and any of ":_-.".
//   - Must not start or end with the delimiter.
func ValidateKey(key string) error {
	if key == "" {
		return errors.Wrap(ErrInvalidKey, "key must not be empty")
	}
	if len(key) > keyMaxLength {
		return errors.Wrapf(ErrInvalidKey, "key %q exceeds %d characters", key, keyMaxLength)
	}
	if !keyRegex.MatchString(key) {
		return errors.Wrapf(ErrInvalidKey, "key %q contains invalid characters", key)
	}
	if strings.HasPrefix(key, KeyDelimiter) || strings.HasSuffix(key, KeyDelimiter) {
		return errors.Wrapf(ErrInvalidKey, "key %q must not start or end with %q", key, KeyDelimiter)
	}
	return nil
}

// validateNamespace validates a namespace, which is a key without delimiters.
func validateNamespace(ns string) error {
	if err := ValidateKey(ns); err != nil {
		return err
	}
	if strings.Contains(ns, KeyDelimiter) {
		return errors.Wrapf(ErrInvalidKey, "namespace %q must not contain %q", ns, KeyDelimiter)
	}
	return nil
}

// redisKey returns the fully qualified redis key "<namespace>:<key>".
func (c *Client) redisKey(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return c.namespace + KeyDelimiter + key, nil
}

func (c *Client) redisKeys(keys []string) ([]string, error) {
	out := make([]string, len(keys))
	for i, k := range keys {
		rk, err := c.redisKey(k)
		if err != nil {
			return nil, err
		}
		out[i] = rk
	}
	return out, nil
}

// matchPattern returns the redis glob pattern matching pattern inside the
// namespace. An empty pattern matches every key.
func (c *Client) matchPattern(pattern string) string {
	if pattern == "" {
		pattern = "*"
	}
	return c.namespace + KeyDelimiter + pattern
}

// logicalKey strips the namespace from a redis key.
func (c *Client) logicalKey(rk string) string {
	return strings.TrimPrefix(rk, c.namespace+KeyDelimiter)
}

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAPIKey is returned when a login key matches no configured key.
var ErrInvalidAPIKey = errors.New("invalid api key")

// APIKeys maps login keys to the actor they authenticate.
type APIKeys struct {
	entries []apiKeyEntry
}

type apiKeyEntry struct {
	key   []byte
	actor Actor
}

// ParseAPIKeys reads "key:owner" pairs. A key without an owner authenticates
// as an actor whose ID is the key itself.
func ParseAPIKeys(pairs []string) (*APIKeys, error) {
	keys := &APIKeys{}
	for _, p := range pairs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key, owner, found := strings.Cut(p, ":")
		key = strings.TrimSpace(key)
		owner = strings.TrimSpace(owner)
		if key == "" {
			return nil, fmt.Errorf("api key entry %q has empty key", p)
		}
		if !found || owner == "" {
			owner = key
		}
		keys.entries = append(keys.entries, apiKeyEntry{key: []byte(key), actor: Actor{ID: owner}})
	}
	return keys, nil
}

// Len reports the number of configured keys.
func (k *APIKeys) Len() int {
	return len(k.entries)
}

// Authenticate returns the actor for key. It compares against every entry so
// timing does not reveal which key matched.
func (k *APIKeys) Authenticate(key string) (Actor, bool) {
	var match Actor
	found := 0
	for _, e := range k.entries {
		if subtle.ConstantTimeCompare([]byte(key), e.key) == 1 {
			match = e.actor
			found = 1
		}
	}
	return match, found == 1
}

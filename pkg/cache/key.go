package cache

import (
	"strconv"
	"strings"
)

// Key identifies a cacheable upstream resource.
type Key struct {
	// Resource is the logical resource name (e.g., "brasileirao-tabela")
	Resource string

	// ID is the championship id; 0 omits it
	ID int

	// Params disambiguate the resource further (e.g., round number)
	Params []string
}

// String generates the cache key string.
// Format: resource[:id][:param...]
//
// Example:
//
//	brasileirao-rodada:10:5
func (k Key) String() string {
	parts := []string{strings.TrimSpace(k.Resource)}

	if k.ID > 0 {
		parts = append(parts, strconv.Itoa(k.ID))
	}

	for _, p := range k.Params {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}

	return strings.Join(parts, ":")
}

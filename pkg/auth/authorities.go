package auth

import "sort"

// AuthorityAuthenticated is the sentinel authority granted to every
// successfully authenticated principal
const AuthorityAuthenticated = "authenticated"

// NewAuthorities builds a deduplicated, lexicographically sorted authority
// set from the given names. Empty names are dropped. Insertion order is
// irrelevant; sort order makes comparison stable.
func NewAuthorities(names ...string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GrantedAuthorities prepends the authenticated sentinel to the
// group-derived authorities and normalizes the set
func GrantedAuthorities(groupAuthorities []string) []string {
	names := make([]string, 0, len(groupAuthorities)+1)
	names = append(names, AuthorityAuthenticated)
	names = append(names, groupAuthorities...)
	return NewAuthorities(names...)
}

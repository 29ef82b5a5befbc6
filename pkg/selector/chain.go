package selector

import "strings"

// ChainString builds the scope chain string for a list of scopes, outermost first.
func ChainString(scopes []string) string {
	if len(scopes) == 0 {
		return ""
	}
	return "." + strings.Join(scopes, " .")
}

// SplitChain is the inverse of ChainString.
func SplitChain(chain string) []string {
	fields := strings.Fields(chain)
	scopes := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimPrefix(f, ".")
		if f != "" {
			scopes = append(scopes, f)
		}
	}
	return scopes
}

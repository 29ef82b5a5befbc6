// Package tokens provides a reference counted set of words, so a word stays
// suggested until its last occurrence is removed.
package tokens

// Ref is the bookkeeping entry for one key.
type Ref struct {
	Key   string
	Token string
	Count int
}

// Set tracks distinct tokens with per-key reference counts. The zero value
// is not usable; call NewSet.
type Set struct {
	refs   map[string]*Ref
	tokens []string
	keys   []string
}

// NewSet creates an empty set.
func NewSet() *Set {
	s := &Set{}
	s.Clear()
	return s
}

// Clear drops every token.
func (s *Set) Clear() {
	s.refs = make(map[string]*Ref)
	s.tokens = nil
	s.keys = nil
}

// Len returns the number of live tokens.
func (s *Set) Len() int {
	return len(s.tokens)
}

// Tokens returns live tokens in first-insertion order. The slice is owned by
// the set and must not be modified.
func (s *Set) Tokens() []string {
	return s.tokens
}

// Refs returns a copy of every live entry, in token order.
func (s *Set) Refs() []Ref {
	out := make([]Ref, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, *s.refs[k])
	}
	return out
}

// Token returns the token stored under key.
func (s *Set) Token(key string) (string, bool) {
	if r, ok := s.refs[key]; ok {
		return r.Token, true
	}
	return "", false
}

// RefCount returns the current count for key, or 0.
func (s *Set) RefCount(key string) int {
	if r, ok := s.refs[key]; ok {
		return r.Count
	}
	return 0
}

// Add increments the count for key (the token itself when no key is given).
// The token is appended to Tokens on the 0 to 1 transition.
func (s *Set) Add(token string, key ...string) {
	k := keyFor(token, key)
	r, ok := s.refs[k]
	if !ok {
		r = &Ref{Key: k, Token: token}
		s.refs[k] = r
		s.tokens = append(s.tokens, token)
		s.keys = append(s.keys, k)
	}
	r.Count++
}

// Remove decrements the count for key and drops the token once the count
// reaches zero. It reports whether the key was present.
func (s *Set) Remove(token string, key ...string) bool {
	k := keyFor(token, key)
	r, ok := s.refs[k]
	if !ok {
		return false
	}
	r.Count--
	if r.Count <= 0 {
		delete(s.refs, k)
		s.removeFromList(k)
	}
	return true
}

// removeFromList splices the entry out in place so the remaining tokens keep
// their insertion order.
func (s *Set) removeFromList(key string) {
	for i, k := range s.keys {
		if k == key {
			s.tokens = append(s.tokens[:i], s.tokens[i+1:]...)
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			return
		}
	}
}

func keyFor(token string, key []string) string {
	if len(key) > 0 && key[0] != "" {
		return key[0]
	}
	return token
}

package models

// Token is one entry of a user's session list.
type Token struct {
	Access string `json:"access"`
	Token  string `json:"token"`
}

// Sessions is the ordered list of live session tokens owned by a user.
// Entries have no identity outside the owning record.
type Sessions []Token

func NewAuthToken(token string) Token {
	return Token{Access: AccessAuth, Token: token}
}

// Append adds token at the end of the list.
func (s *Sessions) Append(token string) {
	*s = append(*s, NewAuthToken(token))
}

// Remove drops the entry whose token matches exactly. It reports whether
// anything was removed; a missing token is not an error.
func (s *Sessions) Remove(token string) bool {
	kept := (*s)[:0]
	removed := false
	for _, t := range *s {
		if t.Token == token {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	*s = kept
	return removed
}

func (s *Sessions) Clear() {
	*s = Sessions{}
}

func (s Sessions) Contains(token string) bool {
	for _, t := range s {
		if t.Token == token {
			return true
		}
	}
	return false
}

func (s Sessions) Clone() Sessions {
	out := make(Sessions, len(s))
	copy(out, s)
	return out
}

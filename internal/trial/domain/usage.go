package domain

// Usage is the free-use record for one (user, service) pair. Count never decreases between resets and is
// created on first use.
type Usage struct {
	UserID  string
	Service string
	Count   int
	Limit   int
}

// Remaining returns the free uses left, never negative.
func (u Usage) Remaining() int {
	if u.Count >= u.Limit {
		return 0
	}
	return u.Limit - u.Count
}

// Exhausted reports whether no free uses are left.
func (u Usage) Exhausted() bool {
	return u.Count >= u.Limit
}

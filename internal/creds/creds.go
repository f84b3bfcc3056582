// Package creds holds the ordered API credential pool used for failover.
package creds

// Credential is one API key with its failover rank (primary=0, backup=1).
type Credential struct {
	Label string
	Key   string
	Rank  int
}

// Pool is an ordered, immutable set of credentials. Failover walks the pool
// from rank 0 upward; no lockout state survives between fetch attempts, so a
// credential rejected in one cycle is tried fresh in the next.
type Pool struct {
	ordered []Credential
}

// NewPool builds a pool from the primary and optional backup API keys.
// An empty pool is valid: the fetcher then issues unauthenticated requests.
func NewPool(primary, backup string) *Pool {
	p := &Pool{}
	if primary != "" {
		p.ordered = append(p.ordered, Credential{Label: "primary", Key: primary, Rank: 0})
	}
	if backup != "" {
		p.ordered = append(p.ordered, Credential{Label: "backup", Key: backup, Rank: len(p.ordered)})
	}
	return p
}

// Ordered returns the credentials in failover order. The returned slice is a
// copy; callers may not mutate pool state through it.
func (p *Pool) Ordered() []Credential {
	out := make([]Credential, len(p.ordered))
	copy(out, p.ordered)
	return out
}

// Len reports how many credentials are configured.
func (p *Pool) Len() int {
	return len(p.ordered)
}

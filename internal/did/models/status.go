package models

// Status is the lifecycle state of a DID record.
//
//	pending -> active -> expired | revoked
//	pending -> revoked | expired
//
// expired and revoked are terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusRevoked, StatusExpired},
	StatusActive:  {StatusRevoked, StatusExpired},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired, StatusRevoked:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusExpired || s == StatusRevoked
}

// IsLive reports whether s still counts toward the one-live-DID-per-user rule.
func (s Status) IsLive() bool {
	return s == StatusPending || s == StatusActive
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

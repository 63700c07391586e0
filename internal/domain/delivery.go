package domain

import "sort"

// RecipientSet is the set of user ids eligible for one event.
type RecipientSet map[string]struct{}

// NewRecipientSet builds a set from ids, skipping empty values.
func NewRecipientSet(ids ...string) RecipientSet {
	set := make(RecipientSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

// Add inserts id unless it is empty.
func (s RecipientSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Contains reports membership.
func (s RecipientSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s RecipientSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DeliveryResult is the outcome for one device token.
type DeliveryResult struct {
	Token     string `json:"token"`
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DeliveryReport aggregates the results of one batched send.
type DeliveryReport struct {
	SuccessCount int              `json:"successCount"`
	FailureCount int              `json:"failureCount"`
	Results      []DeliveryResult `json:"results"`
}

// Empty reports whether nothing was sent.
func (r DeliveryReport) Empty() bool {
	return len(r.Results) == 0
}

// Failed returns the results that were not delivered.
func (r DeliveryReport) Failed() []DeliveryResult {
	var out []DeliveryResult
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

// TokenStats summarizes the token registry.
type TokenStats struct {
	TotalUsers  int `json:"totalUsers"`
	TotalTokens int `json:"totalTokens"`
}

// MembershipStats summarizes team memberships.
type MembershipStats struct {
	TotalTeams       int `json:"totalTeams"`
	TotalMemberships int `json:"totalMemberships"`
}

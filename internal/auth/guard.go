package auth

import "archinsight/internal/model"

// Decision is the outcome of an access guard.
type Decision int

const (
	// Authorized means the caller may proceed.
	Authorized Decision = iota
	// Unauthenticated means no valid session backs the caller.
	Unauthenticated
	// Forbidden means the session exists but its role is insufficient.
	Forbidden
)

// GuardResult is an explicit, checkable authorization verdict. Callers
// branch on Decision instead of relying on thrown errors, keeping "not
// logged in" and "not allowed" distinguishable.
type GuardResult struct {
	Decision Decision
	Session  *model.Session
}

// Allowed reports whether the guard authorized the caller.
func (r GuardResult) Allowed() bool {
	return r.Decision == Authorized
}

// RequireAuth passes any valid session.
func RequireAuth(session *model.Session) GuardResult {
	if session == nil {
		return GuardResult{Decision: Unauthenticated}
	}
	return GuardResult{Decision: Authorized, Session: session}
}

// RequireAdmin passes only admin sessions.
func RequireAdmin(session *model.Session) GuardResult {
	if session == nil {
		return GuardResult{Decision: Unauthenticated}
	}
	if !session.Role.IsAdmin() {
		return GuardResult{Decision: Forbidden, Session: session}
	}
	return GuardResult{Decision: Authorized, Session: session}
}

// RequireTeamLead passes team_lead and admin sessions.
func RequireTeamLead(session *model.Session) GuardResult {
	if session == nil {
		return GuardResult{Decision: Unauthenticated}
	}
	if !session.Role.IsTeamLeadOrAbove() {
		return GuardResult{Decision: Forbidden, Session: session}
	}
	return GuardResult{Decision: Authorized, Session: session}
}

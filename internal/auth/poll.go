package auth

import "time"

type pollOutcome int

const (
	outcomeFailed pollOutcome = iota
	outcomeGranted
	outcomePending
	outcomeSlowDown
)

// tokenPayload is the raw token endpoint response shape.
type tokenPayload struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (p tokenPayload) token() TokenResponse {
	return TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		Scope:        p.Scope,
	}
}

func classify(p tokenPayload) pollOutcome {
	if p.AccessToken != "" {
		return outcomeGranted
	}
	switch p.Error {
	case "authorization_pending":
		return outcomePending
	case "slow_down":
		return outcomeSlowDown
	case "":
		// neither token nor error: nothing to act on, poll again
		return outcomePending
	default:
		return outcomeFailed
	}
}

// pollState is the loop state of PollToken. Each transition returns a new value.
type pollState struct {
	interval time.Duration
	elapsed  time.Duration
}

func newPollState(s Session) pollState {
	interval := time.Duration(s.Interval) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}
	return pollState{interval: interval}
}

func (s pollState) waited() pollState {
	s.elapsed += s.interval
	return s
}

func (s pollState) slowedDown() pollState {
	s.interval += slowDownIncrement
	return s
}

// outlives reports whether the next wait would end past lifetime. A zero lifetime never expires.
func (s pollState) outlives(lifetime time.Duration) bool {
	return lifetime > 0 && s.elapsed+s.interval > lifetime
}

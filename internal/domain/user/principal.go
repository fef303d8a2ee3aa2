package user

import "context"

// Principal is the authenticated caller as reported by the identity provider.
type Principal struct {
	UserID string
	Email  string
	Name   string
}

type Verifier interface {
	VerifyAccessToken(ctx context.Context, token string) (Principal, error)
}

package standup

import "context"

type ctxKey string

const (
	ctxKeyCredential ctxKey = "standup_credential"
	ctxKeyOrgName    ctxKey = "standup_org_name"
	ctxKeyClaims     ctxKey = "standup_claims"
)

// WithCredential stores the resolved bearer credential in the context.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, ctxKeyCredential, credential)
}

// CredentialFromContext extracts the bearer credential from the context.
func CredentialFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyCredential).(string)
	return v
}

// WithOrgName stores the resolved organization login in the context.
func WithOrgName(ctx context.Context, org string) context.Context {
	return context.WithValue(ctx, ctxKeyOrgName, org)
}

// OrgNameFromContext extracts the organization login from the context.
func OrgNameFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyOrgName).(string)
	return v
}

// WithClaims stores decoded credential claims in the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// ClaimsFromContext extracts decoded credential claims from the context.
func ClaimsFromContext(ctx context.Context) *Claims {
	v, _ := ctx.Value(ctxKeyClaims).(*Claims)
	return v
}

// ContextCredentials is a CredentialSource reading the credential stored by WithCredential.
var ContextCredentials CredentialSource = CredentialFunc(func(ctx context.Context) (string, bool) {
	c := CredentialFromContext(ctx)
	return c, c != ""
})

// WithAuthState stores a successful resolution's credential and org in the context.
func WithAuthState(ctx context.Context, s AuthState) context.Context {
	if !s.Authenticated {
		return ctx
	}
	return WithOrgName(WithCredential(ctx, s.Credential), s.OrgName)
}

package graph

import "strings"

// CredentialsScope requests every application permission granted to the app.
// The client credentials flow accepts only "<resource>/.default" scopes.
const CredentialsScope = "https://graph.microsoft.com/.default"

// defaultScopes is the delegated permission set requested when the caller
// names none. offline_access is what makes Azure AD issue a refresh token;
// it is an OpenID scope and only accepted without the resource prefix.
var defaultScopes = [...]string{
	"https://graph.microsoft.com/Files.ReadWrite.All",
	"https://graph.microsoft.com/Mail.Read",
	"https://graph.microsoft.com/Mail.Read.Shared",
	"https://graph.microsoft.com/Mail.Send",
	"https://graph.microsoft.com/Mail.Send.Shared",
	"offline_access",
	"https://graph.microsoft.com/User.Read",
	"https://graph.microsoft.com/User.ReadBasic.All",
	"https://graph.microsoft.com/Contacts.ReadWrite",
	"https://graph.microsoft.com/Contacts.ReadWrite.Shared",
	"https://graph.microsoft.com/Sites.ReadWrite.All",
}

// DefaultScopes returns a fresh copy of the default delegated scopes.
// Callers may modify the result freely.
func DefaultScopes() []string {
	return append([]string(nil), defaultScopes[:]...)
}

// ResolveScopes returns the effective scope list: scopes, or the defaults
// when scopes is nil, followed by additional. The inputs are never modified
// and duplicates are kept.
func ResolveScopes(scopes, additional []string) []string {
	var base []string
	if scopes == nil {
		base = DefaultScopes()
	} else {
		base = append([]string(nil), scopes...)
	}
	return append(base, additional...)
}

// credentialScopes keeps only the ".default" scopes usable by the client
// credentials flow, falling back to CredentialsScope.
func credentialScopes(scopes []string) []string {
	var out []string
	for _, s := range scopes {
		if strings.HasSuffix(s, "/.default") {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{CredentialsScope}
	}
	return out
}

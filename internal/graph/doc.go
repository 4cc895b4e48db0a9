// Package graph authenticates against Microsoft Graph and hands out
// authorized mailbox clients.
//
// An Account owns the OAuth token for one application registration. Tokens
// are kept in a TokenStore: a JSON file readable only by its owner, or an
// item in the OS keyring. Every token the account obtains, including tokens
// issued by a silent refresh, is written back to the store.
//
// Two flows are supported:
//
//   - authorization: the user opens a consent URL and pastes back the
//     redirect (PKCE protected). A refresh token keeps later runs silent.
//   - credentials: the client credentials grant with application
//     permissions; no user interaction.
package graph

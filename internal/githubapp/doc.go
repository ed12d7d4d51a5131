// Package githubapp talks to the GitHub REST API as a GitHub App.
//
// Two credentials are involved. The App itself authenticates with a short
// RS256 JWT signed by its private key; that JWT is only good for exchanging
// into an installation access token. Installation tokens (one hour TTL) are
// what the bot uses to comment on issues. CredentialManager caches them per
// installation and refreshes them before they expire, coalescing concurrent
// refreshes into a single upstream call.
package githubapp

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides voter token generation and validation.

# Voter Tokens

A voter token is a random 18-byte voter id followed by an HMAC-SHA256 tag
of that id, both URL-safe base64 without padding:

	token, err := auth.GenerateVoterToken(secret)
	err = auth.ValidateVoterToken(token, secret)

Since the tag is derived from the server secret, tokens can be checked
without storing them. The whole token identifies the voter to the poll
backend, which keys each voter's choices by it.

# Secrets

GenerateSecret creates a random secret for deployments that do not
configure one. Tokens signed with it stop validating when the process
restarts.

# Errors

  - ErrInvalidToken: malformed token
  - ErrBadSignature: well-formed token signed with a different secret
*/
package auth

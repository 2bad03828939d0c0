/*
Package authsdk is the Go client for the passport service and the home of
the JSON wire types its HTTP handlers speak.

# Client vs Session

  - Client: unauthenticated operations (health, JWKS, password login)
  - Session: operations made with a bearer token

Create a Client and log in:

	client := authsdk.NewClient("https://passport.example.com")

	session, err := client.LoginPassword(ctx, "alice", "correct-horse")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
			// wrong username or password
		}
		return err
	}

When the account has a second factor the first token only proves the
password. Exchange it for a full session with a TOTP code:

	if session.NeedsMFA() {
		session, err = session.CompleteMFA(ctx, code)
	}

A Session does not refresh itself. Tokens expire and the user logs in
again; passport keeps no server-side sessions.

# Errors

Every non-2xx response is returned as *APIError carrying the HTTP status,
a machine readable code and a description. The codes are the constants
named ErrorCode*.
*/
package authsdk

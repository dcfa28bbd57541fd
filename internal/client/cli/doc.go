// Package cli provides the interactive promoconsig command-line client.
//
// NewApp wires configuration, local storage, the REST client, the session
// store, the identity resolver, the credential vault and the biometric gate.
// App.Run starts a REPL supporting:
//   - login (typed credentials, last username offered as default)
//   - biometric (vaulted credentials behind a confirmation challenge)
//   - select / cancel for a pending registration choice
//   - status, logout
//   - vault on|off
//
// When a login yields several registrations the user picks one from a
// numbered list, or cancels.
package cli

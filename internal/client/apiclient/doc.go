// Package apiclient talks to the consignment backend over REST.
//
// Endpoints
//
//   - POST {api}/oauth/token: OAuth2 password grant, client credentials in
//     HTTP Basic auth, scope "read write".
//   - GET  {api}/user/me: profile of the bearer.
//   - GET  {consig}/colaborador/buscarPorMatricula/{document}: candidate
//     registrations; 404 and a null body both mean "none".
//   - GET  {consig}/colaborador/buscarColaborador/{document}/{code}: employment
//     detail; 404 maps to ErrNotFound.
//
// # Error Handling
//
// Failures are reported with sentinel errors matched by errors.Is:
// ErrRejected (the server answered 4xx), ErrUnavailable (transport failure or
// 5xx), ErrNotFound, ErrTokenMissing. HTTP failures are *APIError values that
// also carry the server's human-readable message, see ExtractMessage.
package apiclient

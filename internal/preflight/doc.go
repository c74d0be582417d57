// Package preflight provides readiness checks for the filesystem paths and
// services subdetx depends on.
//
// These checks run in two contexts:
//   - "subdetx serve" calls RunAll before binding; a failed check aborts
//     startup instead of failing every upload later.
//   - "subdetx status" prints RunAll plus CheckServer so operators can see
//     whether a server is answering on the configured bind address.
package preflight

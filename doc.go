// Package account implements the self-service account settings workflow
// (email, password, and username changes plus account deletion) and the
// admin user directory that sits on top of the same repositories.
//
// Verification codes:
//   - Sensitive mutations are gated by a six digit code issued after the
//     user confirms their current password. Codes live on the user row
//     with a one hour expiry; issuing a new code overwrites the previous
//     one, and validation never distinguishes a wrong code from an
//     expired one.
//   - Accounts backed by an external provider have no password to
//     confirm: username changes skip the code entirely and password
//     flows are rejected with an error naming the provider.
//
// Mutations:
//   - Each change runs as a single transaction that applies the update,
//     consumes the stored code, and deletes every session minted against
//     the old credentials. Notifications go out after commit and are
//     best-effort; a failed send never rolls back a committed change.
//
// Admin directory:
//   - Directory and DirectoryFilter provide the read-side projection of
//     all users with subscription statistics, conjunctive filtering, a
//     bulk selection set, and per-row busy tracking for role changes.
//     RequireAdmin gates the HTTP surface.
package account

// Package password hashes and verifies user passwords with argon2id.
//
// Hashes are encoded in the PHC string format used by the reference argon2
// tooling, e.g.
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
//
// Verify reads the cost parameters back from the encoded hash, so hashes
// written with older parameters keep working after the defaults change.
// Password policy is enforced by callers, not here.
package password

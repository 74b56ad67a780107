// Package password hashes account passwords.
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.Verify] also accepts bcrypt hashes ($2a$, $2b$, $2y$) carried over
// from the existing user table. [Hasher.NeedsUpgrade] reports those, and
// argon2id hashes made with weaker parameters, so the caller can re-hash after
// the next successful login.
//
// The package never stores passwords and never logs them.
package password

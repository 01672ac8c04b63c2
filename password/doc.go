// Package password hashes and verifies passwords with argon2id. Hashes are
// stored in PHC string format, so each row carries its own parameters and
// cost upgrades can be rolled out lazily at login time via NeedsRehash.
package password

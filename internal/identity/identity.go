// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package identity derives the deterministic 128-bit content identity
// used to key indexed documents (C3 in the crawl core design). The
// same (repository, branch, path) tuple always yields the same
// identity, which is the basis for idempotent re-indexing.
package identity

import (
	"crypto/sha256"

	"github.com/google/uuid"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

// ForFilesystem derives the identity of a file in a FILESYSTEM-kind
// repository from its repository URL/path and the file's path
// relative to that root.
func ForFilesystem(url, relativePath string) model.Identity {
	return fromString(url + ":" + relativePath)
}

// ForGit derives the identity of a file in a GIT or GIT_MULTI
// repository from its repository URL, branch name, and path relative
// to the repository root.
func ForGit(url, branch, path string) model.Identity {
	return fromString(url + ":" + branch + ":" + path)
}

// fromString hashes s with SHA-256 and reshapes the first 16 bytes of
// the digest into an RFC 4122-style value: the version nibble is set
// to 4 and the variant bits to 10, exactly as uuid.NewSHA1-style
// derivations do, except seeded by a cryptographically strong
// SHA-256 digest rather than SHA-1 so the output space is the full
// security margin SHA-256 provides.
func fromString(s string) model.Identity {
	digest := sha256.Sum256([]byte(s))

	var raw [16]byte
	copy(raw[:], digest[:16])

	u, err := uuid.FromBytes(raw[:])
	if err != nil {
		// uuid.FromBytes only fails on a length mismatch, which
		// cannot happen given the fixed-size copy above.
		panic(err)
	}

	// Force version 4 / variant 10 so the identity is a well-formed
	// RFC 4122 value even though it is derived, not random.
	u[6] = (u[6] & 0x0f) | 0x40
	u[8] = (u[8] & 0x3f) | 0x80

	var id model.Identity
	copy(id[:], u[:])
	return id
}

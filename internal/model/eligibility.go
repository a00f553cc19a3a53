// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package model

import "strings"

// eligibleExtensions is the fixed, case-insensitive set of file
// extensions C5 and C7 index. Matched against a file's extension with
// the leading dot stripped.
var eligibleExtensions = map[string]struct{}{
	"rs": {}, "py": {}, "js": {}, "ts": {}, "java": {}, "c": {}, "cpp": {},
	"h": {}, "hpp": {}, "go": {}, "rb": {}, "php": {}, "cs": {}, "swift": {},
	"kt": {}, "scala": {}, "clj": {}, "hs": {}, "ml": {}, "fs": {}, "elm": {},
	"dart": {}, "vue": {}, "jsx": {}, "tsx": {}, "html": {}, "css": {}, "scss": {},
	"less": {}, "sql": {}, "sh": {}, "bash": {}, "zsh": {}, "fish": {}, "ps1": {},
	"bat": {}, "cmd": {}, "dockerfile": {}, "yaml": {}, "yml": {}, "json": {},
	"toml": {}, "xml": {}, "md": {}, "txt": {}, "cfg": {}, "conf": {}, "ini": {},
	"properties": {}, "gradle": {}, "maven": {}, "pom": {}, "sbt": {}, "cmake": {},
	"makefile": {}, "r": {}, "m": {}, "perl": {}, "pl": {}, "lua": {},
}

// eligibleBasenames are well-known extensionless files, compared
// case-folded.
var eligibleBasenames = map[string]struct{}{
	"dockerfile": {}, "makefile": {}, "rakefile": {}, "gemfile": {},
	"vagrantfile": {}, "procfile": {}, "readme": {}, "license": {},
	"changelog": {}, "authors": {}, "contributors": {}, "copying": {},
	"install": {}, "news": {}, "todo": {},
}

// MaxIndexableFileBytes is the size ceiling above which a blob is
// skipped rather than read for indexing.
const MaxIndexableFileBytes = 10 * 1024 * 1024

// IsEligibleFile reports whether name (a path or bare filename) should
// be indexed, judging solely by its extension or, for extensionless
// files, its case-folded basename.
func IsEligibleFile(name string) bool {
	base := name
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		base = name[i+1:]
	}
	ext := ""
	if i := strings.LastIndex(base, "."); i > 0 {
		ext = base[i+1:]
	}
	if ext != "" {
		_, ok := eligibleExtensions[strings.ToLower(ext)]
		return ok
	}
	_, ok := eligibleBasenames[strings.ToLower(base)]
	return ok
}

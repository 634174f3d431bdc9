// Package ebook indexes EPUB archives into a flat text stream and resolves
// positions within it.
//
// An Index concatenates the stripped text of every spine document with the
// fragment table needed to map stream offsets back to markup. The Resolver
// searches the stream in three tiers (exact, normalized, fuzzy) and reports
// which tier matched so callers can weigh the result's precision. Locator
// generation produces reader-style structural paths of the form
// /body/DocFragment[n]/body/.../p[i].
package ebook

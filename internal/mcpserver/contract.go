package mcpserver

// FingerprintRule describes how book fingerprints are derived, so that LLM
// consumers can query the archive by title and author.
const FingerprintRule = `# Archive Fingerprint Rule

Every archived book is keyed by a fingerprint of its title and author.
Two submissions whose titles and authors differ only in ASCII letter case
share one fingerprint, and only the first of them is archived.

## Derivation

1. Lower-case the title and the author byte by byte. Only ASCII ` + "`A-Z`" + ` are
   folded; every other byte is kept as is.
2. Render each as a bracketed list of decimal byte values separated by
   ", ". ` + "`\"ab\"`" + ` becomes ` + "`[97, 98]`" + `, an empty value becomes ` + "`[]`" + `.
3. Concatenate title rendering then author rendering:
   ` + "`(\"ab\", \"c\")`" + ` -> ` + "`[97, 98][99]`" + `.
4. Hash the result with BLAKE2b-256.
5. Write the digest as ` + "`0x`" + ` followed by 64 lower-case hex digits.

## Example

` + "`title` / `author`" + ` -> ` + "`0x53210bedc165123c8d555e5a37ba5657595d14774dcb363db8218aeae8bc12c1`" + `

## Tools

- ` + "`compute_fingerprint`" + ` applies this rule for you.
- ` + "`book_summary`" + ` looks a fingerprint up.
- ` + "`archive_book`" + ` archives a new book. The stored title and author are the
  lower-cased forms; the content reference is stored verbatim and never
  fetched or validated.
`

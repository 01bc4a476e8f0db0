// Package metadata reads the title block of a KiCad design file. Only a
// handful of fields are extracted, by pattern matching, never by parsing the
// whole s-expression tree.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultRevision is used when the design file declares no revision.
const DefaultRevision = "0"

// Identity describes the project being exported. It is derived once per run
// and read by every export command.
type Identity struct {
	ProjectName string // design base name, whitespace replaced by hyphens
	Revision    string // sanitized, safe as a path segment
	Title       string
	Date        string
	Company     string
	Comments    []string // ordered by comment number
}

// Tag returns the revision tag as used in file and directory names: "R1.0".
func (id Identity) Tag() string {
	return "R" + id.Revision
}

// Prefix returns "<project>-R<revision>", the stem shared by every file
// the exporter names itself.
func (id Identity) Prefix() string {
	return id.ProjectName + "-" + id.Tag()
}

var (
	titleRe   = regexp.MustCompile(`\(title\s+"((?:[^"\\]|\\.)*)"\s*\)`)
	revRe     = regexp.MustCompile(`\(rev\s+"((?:[^"\\]|\\.)*)"\s*\)`)
	dateRe    = regexp.MustCompile(`\(date\s+"((?:[^"\\]|\\.)*)"\s*\)`)
	companyRe = regexp.MustCompile(`\(company\s+"((?:[^"\\]|\\.)*)"\s*\)`)
	commentRe = regexp.MustCompile(`\(comment\s+(\d+)\s+"((?:[^"\\]|\\.)*)"\s*\)`)

	titleBlockRe = regexp.MustCompile(`\(title_block\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	unsafeRe     = regexp.MustCompile(`[\\/:*?"<>|\s]+`)
)

// FromFile reads designPath and extracts its identity.
func FromFile(designPath string) (Identity, error) {
	data, err := os.ReadFile(designPath)
	if err != nil {
		return Identity{}, fmt.Errorf("read design file: %w", err)
	}
	return Parse(string(data), designPath), nil
}

// Parse extracts the identity from the text of a design file. Only the
// title block is searched when one is present, so that text items on the
// board cannot shadow it.
func Parse(text, designPath string) Identity {
	block := text
	if loc := titleBlockRe.FindStringIndex(text); loc != nil {
		block = text[loc[0]:closingParen(text, loc[0])]
	}

	id := Identity{
		ProjectName: ProjectName(designPath),
		Revision:    SanitizeRevision(firstMatch(revRe, block)),
		Title:       firstMatch(titleRe, block),
		Date:        firstMatch(dateRe, block),
		Company:     firstMatch(companyRe, block),
	}

	type comment struct {
		n    int
		text string
	}
	var comments []comment
	for _, m := range commentRe.FindAllStringSubmatch(block, -1) {
		n, _ := strconv.Atoi(m[1])
		comments = append(comments, comment{n: n, text: unescape(m[2])})
	}
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].n < comments[j].n })
	for _, c := range comments {
		id.Comments = append(id.Comments, c.text)
	}

	return id
}

// ProjectName derives the project name from a design path: the base name
// without extension, whitespace runs replaced by hyphens.
func ProjectName(designPath string) string {
	base := filepath.Base(designPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(base), "-")
}

// SanitizeRevision makes a revision usable as a path segment. Separators,
// whitespace and characters invalid on common filesystems become "_".
func SanitizeRevision(rev string) string {
	rev = strings.TrimSpace(rev)
	rev = strings.Trim(unsafeRe.ReplaceAllString(rev, "_"), "_")
	if rev == "" {
		return DefaultRevision
	}
	return rev
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return unescape(m[1])
}

func unescape(s string) string {
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(s)
}

// closingParen returns the index just past the parenthesis that closes the
// one opened at start, or len(s) if it is unbalanced.
func closingParen(s string, start int) int {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		switch c := s[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

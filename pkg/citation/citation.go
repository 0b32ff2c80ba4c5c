// Package citation parses [D<n>:p<m>] citation tokens out of generated text.
//
// D<n> is a 1-based index into the run's documents and p<m> a 1-based page.
// Bracketed tokens that start like a citation but do not parse, or that
// point at a document the run does not have, stay in the text as inert
// literals and are logged.
package citation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/logging"
)

var (
	validToken     = regexp.MustCompile(`^\[D(\d+):p(\d+)\]$`)
	candidateToken = regexp.MustCompile(`\[D\d[^\[\]]*\]`)
)

// Citation is a resolved token.
type Citation struct {
	Token         string `json:"token" yaml:"token"`
	DocumentIndex int    `json:"document_index" yaml:"document_index"`
	DocumentRef   string `json:"document_ref" yaml:"document_ref"`
	Page          int    `json:"page" yaml:"page"`
}

// Segment is a run of literal text or a single citation.
type Segment struct {
	Text     string    `json:"text" yaml:"text"`
	Citation *Citation `json:"citation,omitempty" yaml:"citation,omitempty"`
}

// IsCitation reports whether the segment is navigable.
func (s Segment) IsCitation() bool {
	return s.Citation != nil
}

// Result is the outcome of parsing a text.
type Result struct {
	Segments   []Segment               `json:"segments" yaml:"segments"`
	Unresolved []*errors.CitationError `json:"-" yaml:"-"`
}

// Citations returns the resolved citations in text order.
func (r Result) Citations() []Citation {
	var out []Citation
	for _, s := range r.Segments {
		if s.Citation != nil {
			out = append(out, *s.Citation)
		}
	}
	return out
}

// Parse splits text into segments against the run's ordered documents.
func Parse(text string, documents []string) Result {
	return ParseContext(context.Background(), text, documents)
}

// ParseContext is Parse with unresolved tokens logged to the context logger.
func ParseContext(ctx context.Context, text string, documents []string) Result {
	var (
		res     Result
		literal strings.Builder
		last    int
	)
	flush := func() {
		if literal.Len() > 0 {
			res.Segments = append(res.Segments, Segment{Text: literal.String()})
			literal.Reset()
		}
	}

	for _, loc := range candidateToken.FindAllStringIndex(text, -1) {
		literal.WriteString(text[last:loc[0]])
		last = loc[1]
		token := text[loc[0]:loc[1]]

		c, err := resolve(token, documents)
		if err != nil {
			res.Unresolved = append(res.Unresolved, err)
			logging.Ctx(ctx).Warn().Err(err).Str("token", token).Msg("Citation left inert")
			literal.WriteString(token)
			continue
		}
		flush()
		res.Segments = append(res.Segments, Segment{Text: token, Citation: c})
	}
	literal.WriteString(text[last:])
	flush()
	return res
}

func resolve(token string, documents []string) (*Citation, *errors.CitationError) {
	m := validToken.FindStringSubmatch(token)
	if m == nil {
		return nil, errors.NewCitationError(token, "does not match [D<n>:p<m>]")
	}
	doc, err := strconv.Atoi(m[1])
	if err != nil || doc < 1 {
		return nil, errors.NewCitationError(token, "document index must be at least 1")
	}
	page, err := strconv.Atoi(m[2])
	if err != nil || page < 1 {
		return nil, errors.NewCitationError(token, "page must be at least 1")
	}
	if doc > len(documents) {
		return nil, errors.NewCitationError(token, fmt.Sprintf("document D%d does not exist", doc))
	}
	return &Citation{Token: token, DocumentIndex: doc, DocumentRef: documents[doc-1], Page: page}, nil
}

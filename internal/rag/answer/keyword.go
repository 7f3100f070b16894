package answer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
)

// topExcerpts caps how many matched lines make it into a fallback answer.
const topExcerpts = 8

var termPattern = regexp.MustCompile(`[A-Za-z0-9#.+-]+`)

var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "are": {}, "a": {}, "an": {}, "and": {}, "or": {},
	"of": {}, "to": {}, "in": {}, "for": {}, "with": {}, "what": {},
	"which": {}, "who": {}, "does": {}, "do": {}, "list": {}, "show": {},
	"tell": {}, "about": {}, "email": {}, "phone": {}, "contact": {},
}

type lineMatch struct {
	score      int
	documentId string
	filename   string
	line       int
	text       string
}

// keywordFallback answers by scanning the processed text line by line. Each
// line scores one point per distinct query term it contains; top lines become
// the answer and their documents become the sources.
func (g *Generator) keywordFallback(ctx context.Context, question string, scopeDocumentId string) Answer {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	terms := extractTerms(question)
	if len(terms) == 0 {
		return noMatchAnswer(question)
	}

	var scanned []lineMatch
	for _, doc := range g.registry.List() {
		if scopeDocumentId != "" && doc.Id != scopeDocumentId {
			continue
		}
		text, err := g.registry.ReadContent(doc.Id)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(text, "\n") {
			l := strings.TrimSpace(line)
			if l == "" {
				continue
			}
			lower := strings.ToLower(l)
			score := 0
			for _, term := range terms {
				if strings.Contains(lower, term) {
					score++
				}
			}
			if score > 0 {
				scanned = append(scanned, lineMatch{
					score:      score,
					documentId: doc.Id,
					filename:   doc.Filename,
					line:       i + 1,
					text:       l,
				})
			}
		}
	}

	if len(scanned) == 0 {
		log.Debug("Keyword fallback found nothing", "terms", terms)
		return noMatchAnswer(question)
	}

	sort.SliceStable(scanned, func(a, b int) bool {
		if scanned[a].score != scanned[b].score {
			return scanned[a].score > scanned[b].score
		}
		if scanned[a].documentId != scanned[b].documentId {
			return scanned[a].documentId < scanned[b].documentId
		}
		return scanned[a].line < scanned[b].line
	})
	if len(scanned) > topExcerpts {
		scanned = scanned[:topExcerpts]
	}

	snippets := make([]string, len(scanned))
	for i, m := range scanned {
		snippets[i] = fmt.Sprintf("%s: %s", m.filename, m.text)
	}

	var sources []Source
	seen := make(map[string]struct{})
	for _, m := range scanned {
		if _, dup := seen[m.documentId]; dup {
			continue
		}
		seen[m.documentId] = struct{}{}
		sources = append(sources, Source{
			Kind:       SourceFallback,
			DocumentId: m.documentId,
			Filename:   m.filename,
			Line:       m.line,
			Excerpt:    excerpt(m.text),
		})
	}

	return Answer{
		Text:    strings.Join(snippets, "\n"),
		Sources: sources,
		Mode:    ModeFallback,
		Model:   "keyword-fallback",
	}
}

func extractTerms(question string) []string {
	raw := termPattern.FindAllString(strings.ToLower(question), -1)
	terms := raw[:0:0]
	for _, t := range raw {
		if _, skip := stopWords[t]; skip {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

func noMatchAnswer(question string) Answer {
	text := fmt.Sprintf("I couldn't find specific information about '%s' in the uploaded documents. "+
		"You might want to:\n"+
		"1. Upload more relevant documents\n"+
		"2. Try rephrasing your question\n"+
		"3. Ask about topics covered in your uploaded documents", question)
	return Answer{Text: text, Sources: []Source{}, Mode: ModeFallback, Model: "keyword-fallback"}
}

package audit

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Bodies below this size skip the readability pass; the distiller only
// earns its cost on long prose and tends to reject short fragments.
const readabilityMinBytes = 4096

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// PageText is a description's extracted prose plus the structural
// counts scoring reads.
type PageText struct {
	Plain      string
	WordCount  int
	Headings   int
	Lists      int
	Paragraphs int
	TableCells int
}

// ExtractText pulls plain text and structure out of a product
// description. Long bodies go through readability; everything else,
// and any distiller miss, falls back to tag stripping with style and
// script content removed.
func ExtractText(bodyHTML string) PageText {
	if strings.TrimSpace(bodyHTML) == "" {
		return PageText{}
	}

	var pt PageText
	source := bodyHTML
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err == nil {
		doc.Find("style,script").Remove()
		pt.Headings = doc.Find("h2,h3,h4").Length()
		pt.Lists = doc.Find("ul,ol").Length()
		pt.Paragraphs = doc.Find("p").Length()
		pt.TableCells = doc.Find("td").Length()
		if inner, innerErr := doc.Find("body").Html(); innerErr == nil && inner != "" {
			source = inner
		}
	}

	plain := ""
	if len(bodyHTML) >= readabilityMinBytes {
		plain = readabilityText(bodyHTML)
	}
	if plain == "" {
		// Tags become spaces so adjacent blocks keep word boundaries.
		plain = collapse(html.UnescapeString(tagPattern.ReplaceAllString(source, " ")))
	}
	pt.Plain = plain
	pt.WordCount = len(strings.Fields(plain))
	return pt
}

func readabilityText(bodyHTML string) string {
	base, err := url.Parse("https://catalog.local/product")
	if err != nil {
		return ""
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(bodyHTML), base)
	if err != nil {
		return ""
	}
	return collapse(article.TextContent)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package messagelog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// allowedTags maps each permitted element to its permitted attributes.
var allowedTags = map[string]map[string]bool{
	"a": {
		"href":               true,
		"class":              true,
		"data-ticker-symbol": true,
		"data-company-name":  true,
	},
	"p":  {},
	"ul": {},
	"li": {},
}

// droppedTags are removed together with their content.
var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"template": true,
	"noscript": true,
}

// SanitizeHTML keeps only the allow-listed elements and attributes of an
// assistant reply. Disallowed elements are unwrapped so their text survives.
func SanitizeHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return html.EscapeString(raw)
	}
	body := doc.Find("body")
	sanitizeChildren(body)
	out, err := body.Html()
	if err != nil {
		return html.EscapeString(raw)
	}
	return out
}

func sanitizeChildren(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		n := c.Get(0)
		switch n.Type {
		case html.TextNode:
		case html.ElementNode:
			tag := goquery.NodeName(c)
			if droppedTags[tag] {
				c.Remove()
				return
			}
			sanitizeChildren(c)
			attrs, ok := allowedTags[tag]
			if !ok {
				c.ReplaceWithSelection(c.Contents())
				return
			}
			filterAttrs(c, n, attrs)
		default:
			c.Remove()
		}
	})
}

func filterAttrs(c *goquery.Selection, n *html.Node, allowed map[string]bool) {
	var drop []string
	for _, a := range n.Attr {
		if !allowed[a.Key] {
			drop = append(drop, a.Key)
			continue
		}
		if a.Key == "href" && !safeHref(a.Val) {
			drop = append(drop, a.Key)
		}
	}
	for _, key := range drop {
		c.RemoveAttr(key)
	}
}

func safeHref(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if i := strings.Index(v, ":"); i >= 0 {
		scheme := v[:i]
		if !strings.ContainsAny(scheme, "/?#") {
			return scheme == "http" || scheme == "https" || scheme == "mailto"
		}
	}
	return true
}

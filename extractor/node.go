package extractor

import (
	"strings"

	"golang.org/x/net/html"
)

// attr returns the value of key on n, or "" when n is nil or lacks it.
func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates every text node under n, as a browser's
// textContent would, minus script and style bodies.
func textContent(n *html.Node) string {
	var b strings.Builder
	walkText(n, func(s string) { b.WriteString(s) })
	return b.String()
}

// strippedText joins the trimmed, non-empty text nodes under n with no separator.
func strippedText(n *html.Node) string {
	var b strings.Builder
	walkText(n, func(s string) {
		b.WriteString(strings.TrimSpace(s))
	})
	return b.String()
}

func walkText(n *html.Node, emit func(string)) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		emit(n.Data)
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, emit)
	}
}

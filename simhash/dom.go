package simhash

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// skipTags never carry layout signal; their contents churn on every deploy.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
}

// FingerprintLayout computes a SimHash of a page's element structure. Each
// element contributes its tag name joined with its sorted classes, so
// "article.prd" and "div.prc" survive as tokens while text, ids and other
// attributes are ignored. Tokens are shingled in threes to keep ordering.
func FingerprintLayout(htmlStr string) uint64 {
	tokens := layoutTokens(htmlStr)
	if len(tokens) == 0 {
		return 0
	}

	shingles := makeShingles(tokens, 3)
	if len(shingles) == 0 {
		return FingerprintTokens(tokens)
	}
	return FingerprintTokens(shingles)
}

// layoutTokens walks HTML with the tokenizer and emits one token per start tag.
func layoutTokens(htmlStr string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var tokens []string
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return tokens
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if skipDepth > 0 && skipTags[string(tn)] {
				skipDepth--
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			name := string(tn)
			if skipTags[name] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 {
				continue
			}
			tokens = append(tokens, layoutToken(tokenizer, name, hasAttr))
		}
	}
}

func layoutToken(z *html.Tokenizer, name string, hasAttr bool) string {
	var classes []string
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == "class" {
			classes = append(classes, strings.Fields(string(val))...)
		}
	}
	if len(classes) == 0 {
		return name
	}
	slices.Sort(classes)
	return name + "." + strings.Join(classes, ".")
}

// makeShingles creates n-gram shingles from a slice of tokens.
func makeShingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}

	shingles := make([]string, 0, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+n], "_"))
	}
	return shingles
}

package ebook

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractText returns the visible text of an XHTML document: every
// text-bearing node in document order, stripped, joined with single spaces.
// Script and style contents are excluded. The same accounting drives locator
// generation, so offsets into the extracted text can be mapped back to nodes.
func ExtractText(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var parts []string
	walkTextNodes(contentRoot(root), func(node *html.Node, trimmed string) bool {
		parts = append(parts, trimmed)
		return true
	})
	return strings.Join(parts, " ")
}

// contentRoot returns the body element when present, else the document root.
func contentRoot(root *html.Node) *html.Node {
	if body := findElement(root, "body"); body != nil {
		return body
	}
	return root
}

func findElement(node *html.Node, name string) *html.Node {
	if node.Type == html.ElementNode && node.Data == name {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, name); found != nil {
			return found
		}
	}
	return nil
}

// walkTextNodes visits every non-empty stripped text node under root in
// document order. The visitor returns false to stop the walk.
func walkTextNodes(root *html.Node, visit func(node *html.Node, trimmed string) bool) {
	var walk func(node *html.Node) bool
	walk = func(node *html.Node) bool {
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return true
		}
		if node.Type == html.TextNode {
			trimmed := strings.TrimSpace(node.Data)
			if trimmed != "" {
				return visit(node, trimmed)
			}
			return true
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if !walk(child) {
				return false
			}
		}
		return true
	}
	walk(root)
}

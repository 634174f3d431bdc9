package ebook

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// defaultElementPath is returned when an offset cannot be mapped to a node.
const defaultElementPath = "/body/div/p[1]"

// Locator builds a structural path for a character offset within one
// fragment's markup, prefixed with the fragment's spine position so readers
// can address the right document of the work.
func Locator(markup string, localOffset int, fragmentSeq int) string {
	return fmt.Sprintf("/body/DocFragment[%d]%s", fragmentSeq, elementPath(markup, localOffset))
}

// elementPath finds the text node covering the offset and walks up to the
// body element, emitting 1-based same-name sibling indices at each level.
// The offset accounting mirrors ExtractText: stripped node lengths plus one
// unit of inter-node spacing.
func elementPath(markup string, target int) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return defaultElementPath
	}

	var found *html.Node
	cumulative := 0
	walkTextNodes(contentRoot(root), func(node *html.Node, trimmed string) bool {
		if cumulative+len(trimmed) >= target {
			found = node
			return false
		}
		cumulative += len(trimmed) + 1
		return true
	})
	if found == nil || found.Parent == nil {
		return defaultElementPath
	}

	var segments []string
	for current := found.Parent; current != nil; current = current.Parent {
		if current.Type != html.ElementNode {
			continue
		}
		if current.Data == "body" {
			segments = append(segments, "body")
			break
		}
		segments = append(segments, fmt.Sprintf("%s[%d]", current.Data, siblingIndex(current)))
	}
	if len(segments) == 0 {
		return defaultElementPath
	}

	var path strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		path.WriteByte('/')
		path.WriteString(segments[i])
	}
	return path.String()
}

// siblingIndex counts preceding same-named element siblings, 1-based.
func siblingIndex(node *html.Node) int {
	index := 1
	for sibling := node.PrevSibling; sibling != nil; sibling = sibling.PrevSibling {
		if sibling.Type == html.ElementNode && sibling.Data == node.Data {
			index++
		}
	}
	return index
}

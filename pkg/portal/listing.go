package portal

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// CaseRow is one entry scraped from the portal's case listing table.
type CaseRow struct {
	CaseID string
	Title  string
	Status string
}

// Listing is the parsed form of one page of the portal's case listing.
type Listing struct {
	Cases      []CaseRow
	Page       int
	TotalPages int
}

// ParseListing extracts case rows and pagination bounds from the raw
// listing HTML the portal returns after a page selection. The parser is
// intentionally tolerant: rows missing a case id are skipped, and a
// missing pagination block yields TotalPages of 1.
func ParseListing(rawHTML string) (*Listing, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("portal: parse listing HTML: %w", err)
	}

	listing := &Listing{Page: 1, TotalPages: 1}
	collectRows(doc, listing)
	collectPagination(doc, listing)
	return listing, nil
}

// collectRows walks the document for table rows carrying a data-case-id
// attribute and appends one CaseRow per match.
func collectRows(n *html.Node, listing *Listing) {
	if n.Type == html.ElementNode && n.Data == "tr" {
		if id := attrValue(n, "data-case-id"); id != "" {
			row := CaseRow{CaseID: id}
			cells := childElements(n, "td")
			if len(cells) > 0 {
				row.Title = strings.TrimSpace(nodeText(cells[0]))
			}
			if len(cells) > 1 {
				row.Status = strings.TrimSpace(nodeText(cells[1]))
			}
			listing.Cases = append(listing.Cases, row)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectRows(c, listing)
	}
}

// collectPagination reads the current and total page numbers from the
// listing's pagination element.
func collectPagination(n *html.Node, listing *Listing) {
	if n.Type == html.ElementNode {
		if v := attrValue(n, "data-total-pages"); v != "" {
			if total, err := strconv.Atoi(v); err == nil && total >= 1 {
				listing.TotalPages = total
			}
		}
		if v := attrValue(n, "data-current-page"); v != "" {
			if page, err := strconv.Atoi(v); err == nil && page >= 1 {
				listing.Page = page
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectPagination(c, listing)
	}
}

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func childElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var builder strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		builder.WriteString(nodeText(c))
	}
	return builder.String()
}

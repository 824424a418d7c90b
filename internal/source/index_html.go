package source

import (
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// IIS-style index rows carry "M/D/YYYY H:MM AM <size>" in the text node right
// before each anchor. Apache fancy indexes put "DD-Mon-YYYY HH:MM <size>"
// after the anchor instead.
var (
	iisRowRe    = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})\s+(\d{1,2}:\d{2}\s*[AP]M)\s+(\d+|<dir>)\s*$`)
	apacheRowRe = regexp.MustCompile(`^\s*(\d{2}-[A-Z][a-z]{2}-\d{4})\s+(\d{2}:\d{2})\s+(\d+|[\d.]+[KMG]|-)`)
)

// parseHTMLIndex extracts file entries from an HTML directory index page.
// Anchors that point at directories, parent links or column-sort links are
// skipped. Size and modification time are recovered from the surrounding
// preformatted text where the server exposes them; entries without usable
// metadata keep Size=-1 and a zero LastModified.
func parseHTMLIndex(r io.Reader) ([]*RemoteEntry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var entries []*RemoteEntry
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if name, ok := indexFileName(anchorHref(n)); ok {
				entry := &RemoteEntry{Name: name, Size: -1}
				if !applyRowMeta(entry, siblingText(n.PrevSibling), iisRowRe, "1/2/2006 3:04 PM") {
					applyRowMeta(entry, siblingText(n.NextSibling), apacheRowRe, "02-Jan-2006 15:04")
				}
				entries = append(entries, entry)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return entries, nil
}

func anchorHref(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			return attr.Val
		}
	}
	return ""
}

// indexFileName turns an anchor href into a plain file name, rejecting
// directory links, parent links and sort links.
func indexFileName(href string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil || u.RawQuery != "" {
		return "", false
	}

	path := u.Path
	if path == "" || strings.HasSuffix(path, "/") {
		return "", false
	}

	name := path[strings.LastIndex(path, "/")+1:]
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	// directories and navigation links carry no extension
	if name == "" || name == ".." || !strings.Contains(name, ".") {
		return "", false
	}

	return name, true
}

func siblingText(n *html.Node) string {
	if n != nil && n.Type == html.TextNode {
		return n.Data
	}
	return ""
}

func applyRowMeta(entry *RemoteEntry, text string, re *regexp.Regexp, layout string) bool {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return false
	}

	stamp := normalizeSpaces(m[1] + " " + m[2])
	if ts, err := time.Parse(layout, stamp); err == nil {
		entry.LastModified = ts.UTC()
	}

	// suffixed sizes ("1.2K") are rounded by the server, not usable as identity
	if size, err := strconv.ParseInt(m[3], 10, 64); err == nil {
		entry.Size = size
	}

	return true
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

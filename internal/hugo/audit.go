package hugo

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// auditOutput walks the rendered site, counts files and verifies that every
// internal reference in the HTML resolves to a file in the output tree. The
// hosting checkout metadata under .git is excluded from both.
func auditOutput(root string) (files int, broken []string, err error) {
	var htmlFiles []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		files++
		if strings.EqualFold(filepath.Ext(path), ".html") {
			htmlFiles = append(htmlFiles, path)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	for _, p := range htmlFiles {
		refs, err := localRefs(p)
		if err != nil {
			return 0, nil, fmt.Errorf("parse %s: %w", p, err)
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		for _, ref := range refs {
			if !targetExists(root, filepath.Dir(p), ref) {
				broken = append(broken, fmt.Sprintf("%s: %s", filepath.ToSlash(rel), ref))
			}
		}
	}
	return files, broken, nil
}

// refAttrs maps element names to the attribute carrying their target.
var refAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"source": "src",
}

// localRefs parses one HTML file and returns the site-internal reference paths
// it contains. External URLs and bare fragments are skipped.
func localRefs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}

	var refs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := refAttrs[n.Data]; ok {
				for _, a := range n.Attr {
					if a.Key != attr {
						continue
					}
					if ref, ok := localRef(a.Val); ok {
						refs = append(refs, ref)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

// localRef reports whether raw points inside the site and returns its path
// component with query and fragment stripped.
func localRef(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}
	return u.Path, true
}

// targetExists resolves ref against the output root (absolute paths) or the
// containing file's directory (relative paths). Directory targets satisfy the
// check only when they carry an index.html, matching hugo's pretty URLs.
func targetExists(root, fromDir, ref string) bool {
	var p string
	if strings.HasPrefix(ref, "/") {
		p = filepath.Join(root, filepath.FromSlash(ref))
	} else {
		p = filepath.Join(fromDir, filepath.FromSlash(ref))
	}
	st, err := os.Stat(p)
	if err != nil {
		return false
	}
	if st.IsDir() {
		_, err := os.Stat(filepath.Join(p, "index.html"))
		return err == nil
	}
	return true
}

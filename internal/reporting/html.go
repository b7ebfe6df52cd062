package reporting

import (
	"bytes"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

const htmlPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>body{font-family:sans-serif;max-width:60em;margin:auto}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}</style>
</head>
<body>
%s</body>
</html>
`

// RenderHTML converts one markdown artifact to a standalone HTML page.
func RenderHTML(src []byte, title string) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return fmt.Appendf(nil, htmlPage, html.EscapeString(title), body.String()), nil
}

// RenderTree renders every artifact under srcDir to dstDir, preserving the
// category subdirectories. It returns the number of pages written.
func RenderTree(srcDir, dstDir string) (int, error) {
	count := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != srcDir && filepath.Clean(path) == filepath.Clean(dstDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".md") {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		page, err := RenderHTML(src, strings.TrimSuffix(filepath.Base(path), ".md"))
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}

		out := filepath.Join(dstDir, strings.TrimSuffix(rel, ".md")+".html")
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(out, page, 0o644); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

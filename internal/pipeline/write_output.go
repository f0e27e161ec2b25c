package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"panel-filter/internal/filter"
)

const snippetPreviewLen = 60

// outputName is the destination name of a kept file. seq counts kept files
// only, starting at 1.
func outputName(source string, seq int, rename bool, ext string) string {
	if !rename {
		return source
	}
	return fmt.Sprintf("%d.%s", seq, strings.TrimPrefix(ext, "."))
}

// debugName builds TEXT_/NOTEXT_ + stem + optional _by_prep-criteria + ext.
func debugName(source string, res filter.Result) string {
	ext := filepath.Ext(source)
	stem := strings.ReplaceAll(strings.TrimSuffix(source, ext), ":", "_")

	if !res.ContainsText {
		return "NOTEXT_" + stem + ext
	}
	return fmt.Sprintf("TEXT_%s_by_%s-%s%s", stem, res.Matched.Preprocessing, res.Matched.Criteria, ext)
}

// snippetPreview flattens newlines and caps the evidence for one log line.
func snippetPreview(snippet string) string {
	s := strings.TrimSpace(strings.ReplaceAll(snippet, "\n", " "))
	if r := []rune(s); len(r) > snippetPreviewLen {
		return string(r[:snippetPreviewLen])
	}
	return s
}

// copyFile copies src to dst and carries over the modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dst, err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("preserving mtime of %s: %w", dst, err)
	}
	return nil
}

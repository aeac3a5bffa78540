package media

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseStemList reads a .m3u, .m3u8 or .pls file naming one stem per entry.
// Relative entries resolve against the list's directory and remote entries
// are skipped.
func ParseStemList(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsPlaylistExt(ext) {
		return nil, fmt.Errorf("unsupported stem list format %s", ext)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading stem list: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("stem list is not valid UTF-8")
	}
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))

	baseDir := filepath.Dir(abs)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if ext == ".pls" {
		return parsePLS(scanner, baseDir), nil
	}
	return parseM3U(scanner, baseDir), nil
}

// existingStems keeps the entries that are regular files in a stem format.
func existingStems(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() || !IsStem(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func parseM3U(scanner *bufio.Scanner, baseDir string) []string {
	var entries []string
	for scanner.Scan() {
		line := strings.Trim(strings.TrimSpace(scanner.Text()), `"`)
		if line == "" || strings.HasPrefix(line, "#") || isRemote(line) {
			continue
		}
		entries = append(entries, resolveEntry(line, baseDir))
	}
	return entries
}

// parsePLS orders entries by their FileN index, not by line order.
func parsePLS(scanner *bufio.Scanner, baseDir string) []string {
	byIndex := make(map[int]string)
	maxIndex := 0
	for scanner.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		n, ok := plsFileIndex(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if !ok || val == "" || isRemote(val) {
			continue
		}
		byIndex[n] = resolveEntry(val, baseDir)
		maxIndex = max(maxIndex, n)
	}

	var entries []string
	for i := 1; i <= maxIndex; i++ {
		if p, ok := byIndex[i]; ok {
			entries = append(entries, p)
		}
	}
	return entries
}

func plsFileIndex(key string) (int, bool) {
	if len(key) <= len("File") || !strings.EqualFold(key[:len("File")], "File") {
		return 0, false
	}
	n, err := strconv.Atoi(key[len("File"):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func isRemote(entry string) bool {
	return strings.Contains(entry, "://")
}

func resolveEntry(raw, baseDir string) string {
	p := filepath.Clean(raw)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrStemCount is returned when a source does not name exactly the
// requested number of stems.
var ErrStemCount = errors.New("wrong number of stems")

// DiscoverStems returns the count stems named by path. A directory yields
// its stem files sorted case-insensitively; a stem list yields its entries
// in list order.
func DiscoverStems(path string, count int) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading stems: %w", err)
	}

	var stems []string
	switch {
	case info.IsDir():
		stems, err = stemsInDir(path)
	case IsPlaylistExt(filepath.Ext(path)):
		var entries []string
		entries, err = ParseStemList(path)
		stems = existingStems(entries)
	default:
		return nil, fmt.Errorf("%s is neither a directory nor a stem list", path)
	}
	if err != nil {
		return nil, err
	}

	if len(stems) != count {
		return nil, fmt.Errorf("%w: found %d in %s, need %d (%s)",
			ErrStemCount, len(stems), path, count, SupportedExtsList())
	}
	return stems, nil
}

func stemsInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading stems: %w", err)
	}
	var stems []string
	for _, e := range entries {
		if e.IsDir() || !IsStem(e.Name()) {
			continue
		}
		stems = append(stems, filepath.Join(dir, e.Name()))
	}
	sort.Slice(stems, func(i, j int) bool {
		a, b := strings.ToLower(filepath.Base(stems[i])), strings.ToLower(filepath.Base(stems[j]))
		if a == b {
			return stems[i] < stems[j]
		}
		return a < b
	})
	return stems, nil
}

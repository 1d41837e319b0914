// Package source provides the job sources a coordinator run can consume
package source

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jzx17/gojobs/pkg/types"
)

// Slice yields items in order
func Slice[T any](items []types.WorkItem[T]) types.Source[T] {
	return func(yield func(types.WorkItem[T], error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// FileJob is a copy or transform of one file into a target directory
type FileJob struct {
	Source string
	Target string
}

// Dir yields one job per regular file in src, targeting the same name in
// dst. Subdirectories are not descended into. Entries come in name order.
func Dir(src, dst string) types.Source[FileJob] {
	return func(yield func(types.WorkItem[FileJob], error) bool) {
		entries, err := os.ReadDir(src)
		if err != nil {
			yield(types.WorkItem[FileJob]{}, fmt.Errorf("list %s: %w", src, err))
			return
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			path := filepath.Join(src, entry.Name())
			item := types.WorkItem[FileJob]{
				ID:   path,
				Name: entry.Name(),
				Payload: FileJob{
					Source: path,
					Target: filepath.Join(dst, entry.Name()),
				},
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Feed is one news feed to fetch
type Feed struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// FeedFile yields the feeds listed in path. Files ending in .yaml or .yml
// hold a list of title/url mappings; any other file holds alternating
// title and URL lines, with blank lines and lines starting with # ignored.
func FeedFile(path string) types.Source[Feed] {
	return func(yield func(types.WorkItem[Feed], error) bool) {
		feeds, err := readFeeds(path)
		if err != nil {
			yield(types.WorkItem[Feed]{}, err)
			return
		}
		for _, feed := range feeds {
			if !yield(types.WorkItem[Feed]{Name: feed.Title, Payload: feed}, nil) {
				return
			}
		}
	}
}

func readFeeds(path string) ([]Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}

	var feeds []Feed
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &feeds); err != nil {
			return nil, fmt.Errorf("parse feed file %s: %w", path, err)
		}
	default:
		feeds, err = parseFeedLines(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse feed file %s: %w", path, err)
		}
	}

	for i, feed := range feeds {
		if feed.URL == "" {
			return nil, fmt.Errorf("parse feed file %s: feed %d (%q) has no url", path, i+1, feed.Title)
		}
		if feed.Title == "" {
			feeds[i].Title = feed.URL
		}
	}
	return feeds, nil
}

func parseFeedLines(text string) ([]Feed, error) {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines)%2 != 0 {
		return nil, fmt.Errorf("title %q has no url", lines[len(lines)-1])
	}

	feeds := make([]Feed, 0, len(lines)/2)
	for i := 0; i < len(lines); i += 2 {
		feeds = append(feeds, Feed{Title: lines[i], URL: lines[i+1]})
	}
	return feeds, nil
}

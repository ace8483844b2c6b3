package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
)

const defaultCategory = "general"

var whitespace = regexp.MustCompile(`\s+`)

type documentFile struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// Supported reports whether path is a knowledge file the loader understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".html", ".htm":
		return true
	default:
		return false
	}
}

// LoadDir reads every supported file in dir, sorted by name. Files that fail
// to parse are logged and skipped.
func LoadDir(dir string) ([]models.KnowledgeDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var docs []models.KnowledgeDocument
	for _, name := range names {
		loaded, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Error("Error loading knowledge document", zap.String("file", name), zap.Error(err))
			continue
		}
		docs = append(docs, loaded...)
	}

	return docs, nil
}

// LoadFile parses a single knowledge file. A JSON file holds one document
// object or an array of them.
func LoadFile(path string) ([]models.KnowledgeDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(data)
	case ".html", ".htm":
		doc, err := parseHTML(fileID(path), data)
		if err != nil {
			return nil, err
		}
		return []models.KnowledgeDocument{doc}, nil
	default:
		return nil, fmt.Errorf("unsupported knowledge file %s", path)
	}
}

func fileID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func parseJSON(data []byte) ([]models.KnowledgeDocument, error) {
	var files []documentFile

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &files); err != nil {
			return nil, fmt.Errorf("failed to parse knowledge documents: %w", err)
		}
	} else {
		var f documentFile
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, fmt.Errorf("failed to parse knowledge document: %w", err)
		}
		files = append(files, f)
	}

	docs := make([]models.KnowledgeDocument, 0, len(files))
	for _, f := range files {
		if f.ID == "" || strings.TrimSpace(f.Content) == "" {
			return nil, fmt.Errorf("knowledge document %q needs an id and content", f.ID)
		}
		if f.Category == "" {
			f.Category = defaultCategory
		}
		docs = append(docs, models.KnowledgeDocument{
			ID:       f.ID,
			Title:    f.Title,
			Category: f.Category,
			Content:  f.Content,
			Tags:     f.Tags,
		})
	}
	return docs, nil
}

func parseHTML(id string, data []byte) (models.KnowledgeDocument, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return models.KnowledgeDocument{}, fmt.Errorf("failed to parse html: %w", err)
	}

	category := strings.TrimSpace(page.Find(`meta[name="category"]`).AttrOr("content", ""))
	if category == "" {
		category = defaultCategory
	}

	var tags []string
	for _, tag := range strings.Split(page.Find(`meta[name="keywords"]`).AttrOr("content", ""), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(page.Find("h1").First().Text())
	}
	if title == "" {
		title = id
	}

	page.Find("script, style, nav, footer, header, aside").Remove()
	content := strings.TrimSpace(whitespace.ReplaceAllString(page.Find("body").Text(), " "))
	if content == "" {
		return models.KnowledgeDocument{}, fmt.Errorf("no content extracted from %s", id)
	}

	return models.KnowledgeDocument{
		ID:       id,
		Title:    title,
		Category: category,
		Content:  content,
		Tags:     tags,
	}, nil
}

// Package library keeps the PDF documents the backend answers questions about.
package library

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
)

var (
	ErrNotPDF    = errors.New("file does not have the .pdf extension")
	ErrEmptyFile = errors.New("file is empty")
)

// Document describes one stored file.
type Document struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	AddedAt time.Time `json:"addedAt"`
}

// Library stores documents in a folder and indexes them in memory.
type Library struct {
	folder string
	logger *zap.Logger

	mu   sync.RWMutex
	docs map[string]Document
}

// Open creates folder if needed and indexes the PDFs already in it.
func Open(folder string, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create library folder: %w", err)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("scan library folder: %w", err)
	}

	lib := &Library{
		folder: folder,
		logger: logger.Named("library"),
		docs:   make(map[string]Document),
	}
	for _, entry := range entries {
		if entry.IsDir() || !IsPDF(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		lib.docs[entry.Name()] = Document{Name: entry.Name(), Size: info.Size(), AddedAt: info.ModTime()}
	}

	lib.logger.Info("library opened", zap.String("folder", folder), zap.Int("documents", len(lib.docs)))
	return lib, nil
}

// IsPDF reports whether name carries the .pdf extension.
func IsPDF(name string) bool {
	return strings.HasSuffix(name, ".pdf")
}

// Add writes r as name and indexes it. An existing document with the same
// name is replaced.
func (l *Library) Add(name string, r io.Reader) (Document, error) {
	name = filepath.Base(name)
	if !IsPDF(name) || name == ".pdf" {
		return Document{}, ErrNotPDF
	}

	tmp, err := os.CreateTemp(l.folder, ".upload-*")
	if err != nil {
		return Document{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Document{}, fmt.Errorf("write %s: %w", name, err)
	}
	if size == 0 {
		return Document{}, ErrEmptyFile
	}

	if err := os.Rename(tmp.Name(), filepath.Join(l.folder, name)); err != nil {
		return Document{}, fmt.Errorf("store %s: %w", name, err)
	}

	doc := Document{Name: name, Size: size, AddedAt: time.Now().UTC()}
	l.mu.Lock()
	l.docs[name] = doc
	l.mu.Unlock()

	l.logger.Info("document indexed", zap.String("name", name), zap.Int64("bytes", size))
	return doc, nil
}

// Documents lists every indexed document sorted by name.
func (l *Library) Documents() []Document {
	l.mu.RLock()
	docs := make([]Document, 0, len(l.docs))
	for _, doc := range l.docs {
		docs = append(docs, doc)
	}
	l.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs
}

// Relevant picks at most k documents for question. Documents whose name
// shares words with the question rank first, then the most recent ones.
func (l *Library) Relevant(question string, k int) []Document {
	if k <= 0 {
		return nil
	}

	terms := tokenize(question)
	docs := l.Documents()
	scores := make(map[string]int, len(docs))
	for _, doc := range docs {
		for word := range tokenize(strings.TrimSuffix(doc.Name, ".pdf")) {
			if _, ok := terms[word]; ok {
				scores[doc.Name]++
			}
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		si, sj := scores[docs[i].Name], scores[docs[j].Name]
		if si != sj {
			return si > sj
		}
		return docs[i].AddedAt.After(docs[j].AddedAt)
	})

	if len(docs) > k {
		docs = docs[:k]
	}
	return docs
}

func tokenize(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) > 2 {
			set[w] = struct{}{}
		}
	}
	return set
}

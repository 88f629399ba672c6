package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hamba/avro/v2/ocf"
	"go.uber.org/zap"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
)

// File formats understood by the file source
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatAvro  = "avro"
)

// maxLineSize bounds a single JSON lines record
const maxLineSize = 16 * 1024 * 1024

var formatByExtension = map[string]string{
	".json":   FormatJSON,
	".jsonl":  FormatJSONL,
	".ndjson": FormatJSONL,
	".csv":    FormatCSV,
	".tsv":    FormatTSV,
	".avro":   FormatAvro,
}

// csvColumnAliases maps broker style column names onto the canonical keys
var csvColumnAliases = map[string]string{
	"alertId":                   domain.KeyAlertID,
	"diaSourceId":               domain.KeyDetectionID,
	"diaObjectId":               domain.KeyObjectID,
	"decl":                      domain.KeyDec,
	"midPointTai":               domain.KeyMJD,
	"midpointMjdTai":            domain.KeyMJD,
	"filterName":                domain.KeyFilterBand,
	"band":                      domain.KeyFilterBand,
	"psFlux":                    domain.KeyFlux,
	"psFluxErr":                 domain.KeyFluxError,
	"extendednessMedian":        domain.KeyExtendednessMedian,
	"extendednessMin":           domain.KeyExtendednessMin,
	"extendednessMax":           domain.KeyExtendednessMax,
	"hasSSSource":               domain.KeyHasAssociatedObject,
	"ssObjectId":                domain.KeyAssociatedObjectID,
	"ssObjectReassocTimeMjdTai": domain.KeyAssociationRetimestamp,
	"trailData":                 domain.KeyTrailData,
	"pixelFlags":                domain.KeyPixelFlags,
}

// FileConfig configures the file source
type FileConfig struct {
	// Path is a file, a directory scanned recursively, or a glob pattern
	Path string
	// Format overrides the format detected from the file extension
	Format string
}

// FileSource reads alerts from JSON, JSON lines, CSV/TSV or Avro object container files
type FileSource struct {
	cfg FileConfig
	fs  adapter.FileSystem

	mu        sync.Mutex
	files     []string
	connected bool
}

// NewFileSource creates a file source
func NewFileSource(cfg FileConfig, fileSystem adapter.FileSystem) (*FileSource, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("file source path is required")
	}
	if cfg.Format != "" && !slices.Contains(supportedFormats(), cfg.Format) {
		return nil, fmt.Errorf("unsupported file format %q", cfg.Format)
	}
	if fileSystem == nil {
		fileSystem = adapter.NewFileSystem()
	}

	return &FileSource{cfg: cfg, fs: fileSystem}, nil
}

func (s *FileSource) Name() string {
	return TypeFile
}

// Connect resolves the configured path into the list of files to read
func (s *FileSource) Connect(ctx context.Context) error {
	files, err := s.discover()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no alert files found at %s", domain.ErrSourceUnavailable, s.cfg.Path)
	}

	s.mu.Lock()
	s.files = files
	s.connected = true
	s.mu.Unlock()

	logger.InfoCtx(ctx, "File source connected", zap.String("path", s.cfg.Path), zap.Int("files", len(files)))
	return nil
}

// Files returns the files resolved by Connect
func (s *FileSource) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files)
}

func (s *FileSource) discover() ([]string, error) {
	path := s.cfg.Path
	if strings.ContainsAny(path, "*?[") {
		matches, err := s.fs.Glob(path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand pattern %s: %w", path, err)
		}
		slices.Sort(matches)
		return matches, nil
	}

	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = s.fs.WalkDir(path, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := formatByExtension[strings.ToLower(filepath.Ext(name))]; ok {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	slices.Sort(files)

	return files, nil
}

func (s *FileSource) Fetch(ctx context.Context, limit int) iter.Seq2[domain.RawAlert, error] {
	s.mu.Lock()
	connected, files := s.connected, slices.Clone(s.files)
	s.mu.Unlock()
	if !connected {
		return errorSeq(notConnected(s.Name()))
	}

	return func(yield func(domain.RawAlert, error) bool) {
		count := 0
		for _, name := range files {
			format := s.formatOf(name)
			if format == "" {
				logger.WarnCtx(ctx, "Skipping file with unknown format", zap.String("file", name))
				continue
			}

			more, err := s.readFile(ctx, name, format, func(raw domain.RawAlert, err error) bool {
				if err == nil {
					count++
				}
				if !yield(raw, err) {
					return false
				}
				return limit <= 0 || count < limit
			})
			if err != nil {
				yield(nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err))
				return
			}
			if !more {
				return
			}
		}
	}
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = nil
	s.connected = false
	return nil
}

func (s *FileSource) formatOf(name string) string {
	if s.cfg.Format != "" {
		return s.cfg.Format
	}
	return formatByExtension[strings.ToLower(filepath.Ext(name))]
}

// readFile streams the records of one file into yield. It reports whether
// iteration should continue with the next file.
func (s *FileSource) readFile(ctx context.Context, name, format string, yield func(domain.RawAlert, error) bool) (bool, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.WarnCtx(ctx, "Failed to close alert file", zap.String("file", name), zap.Error(err))
		}
	}()

	var records iter.Seq2[domain.RawAlert, error]
	switch format {
	case FormatJSON:
		records = readJSON(f)
	case FormatJSONL:
		records = readJSONLines(f)
	case FormatCSV:
		records = readCSV(f, ',')
	case FormatTSV:
		records = readCSV(f, '\t')
	case FormatAvro:
		records = readAvro(f)
	}

	for raw, err := range records {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if err != nil && !errors.Is(err, domain.ErrValidation) {
			return false, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if !yield(raw, err) {
			return false, nil
		}
	}

	return true, nil
}

// readJSON reads either a top-level array of objects or a stream of concatenated objects
func readJSON(r io.Reader) iter.Seq2[domain.RawAlert, error] {
	return func(yield func(domain.RawAlert, error) bool) {
		br := bufio.NewReader(r)
		dec := json.NewDecoder(br)
		dec.UseNumber()

		if first, err := peekNonSpace(br); err == nil && first == '[' {
			if _, err := dec.Token(); err != nil {
				yield(nil, err)
				return
			}
			for dec.More() {
				var raw domain.RawAlert
				if err := dec.Decode(&raw); err != nil {
					yield(nil, err)
					return
				}
				if !yield(raw, nil) {
					return
				}
			}
			return
		}

		for {
			var raw domain.RawAlert
			err := dec.Decode(&raw)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(raw, nil) {
				return
			}
		}
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !strings.ContainsRune(" \t\r\n", rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// readJSONLines reads one object per line; a malformed line is reported and skipped
func readJSONLines(r io.Reader) iter.Seq2[domain.RawAlert, error] {
	return func(yield func(domain.RawAlert, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)

		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			dec := json.NewDecoder(strings.NewReader(text))
			dec.UseNumber()
			var raw domain.RawAlert
			if err := dec.Decode(&raw); err != nil {
				if !yield(nil, domain.NewValidationError("record", "line %d: %s", line, err.Error())) {
					return
				}
				continue
			}
			if !yield(raw, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// readCSV reads a header row followed by one alert per row. Empty cells are
// treated as missing values.
func readCSV(r io.Reader, comma rune) iter.Seq2[domain.RawAlert, error] {
	return func(yield func(domain.RawAlert, error) bool) {
		reader := csv.NewReader(r)
		reader.Comma = comma
		reader.TrimLeadingSpace = true

		header, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(nil, fmt.Errorf("failed to read header: %w", err))
			return
		}
		columns := make([]string, len(header))
		for i, name := range header {
			name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
			if alias, ok := csvColumnAliases[name]; ok {
				name = alias
			}
			columns[i] = name
		}

		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if !yield(nil, domain.NewValidationError("record", "line %d: %s", parseErr.Line, parseErr.Err.Error())) {
					return
				}
				continue
			}
			if err != nil {
				yield(nil, err)
				return
			}

			raw := domain.RawAlert{}
			for i, value := range record {
				if i >= len(columns) || strings.TrimSpace(value) == "" {
					continue
				}
				raw[columns[i]] = value
			}
			if !yield(raw, nil) {
				return
			}
		}
	}
}

// readAvro reads an Avro object container file. Records may use either the
// flat canonical layout or the nested broker layout.
func readAvro(r io.Reader) iter.Seq2[domain.RawAlert, error] {
	return func(yield func(domain.RawAlert, error) bool) {
		dec, err := ocf.NewDecoder(r)
		if err != nil {
			yield(nil, fmt.Errorf("failed to open avro container: %w", err))
			return
		}

		for dec.HasNext() {
			var record map[string]any
			if err := dec.Decode(&record); err != nil {
				yield(nil, fmt.Errorf("failed to decode avro record: %w", err))
				return
			}
			if !yield(unwrapAvroRecord(record), nil) {
				return
			}
		}
		if err := dec.Error(); err != nil {
			yield(nil, fmt.Errorf("failed to read avro container: %w", err))
		}
	}
}

func supportedFormats() []string {
	return []string{FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatAvro}
}

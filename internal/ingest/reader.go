// Package ingest loads scraped review dumps into store-ready batches.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/restomaps/internal/model"
)

// LineError describes a dump entry that could not be decoded
type LineError struct {
	Line int // 1-based line, or array index + 1 for JSON array dumps
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}

// Dump is a decoded review dump
type Dump struct {
	Records []model.ReviewRecord
	Skipped []LineError
}

// Decode reads a dump in JSON Lines form, one review object per line.
// A dump whose first non-space byte is '[' is read as a single JSON array
// instead. Malformed entries are collected in Skipped; only read failures
// are returned as errors.
func Decode(r io.Reader) (*Dump, error) {
	br := bufio.NewReader(r)

	first, skipped, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return &Dump{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}

	if first == '[' {
		return decodeArray(br)
	}
	return decodeLines(br, skipped+1)
}

func decodeLines(br *bufio.Reader, firstLine int) (*Dump, error) {
	dump := &Dump{}
	for line := firstLine; ; line++ {
		raw, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(raw)) > 0 {
			dump.add(line, raw)
		}
		if errors.Is(err, io.EOF) {
			return dump, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
	}
}

func decodeArray(br *bufio.Reader) (*Dump, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(br).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode dump array: %w", err)
	}

	dump := &Dump{}
	for i, item := range items {
		dump.add(i+1, item)
	}
	return dump, nil
}

func (d *Dump) add(line int, raw []byte) {
	var rec model.ReviewRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		d.Skipped = append(d.Skipped, LineError{Line: line, Err: err})
		return
	}
	rec.RestaurantID = model.ExternalID(strings.TrimSpace(string(rec.RestaurantID)))
	if rec.RestaurantID == "" {
		d.Skipped = append(d.Skipped, LineError{Line: line, Err: errors.New("missing restaurant_id")})
		return
	}
	d.Records = append(d.Records, rec)
}

// peekNonSpace skips leading whitespace and a byte order mark, returning the
// next byte unread and the number of newlines skipped.
func peekNonSpace(br *bufio.Reader) (byte, int, error) {
	lines := 0
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, lines, err
		}
		switch b {
		case '\n':
			lines++
			continue
		case ' ', '\t', '\r':
			continue
		}
		if b == 0xEF {
			if next, err := br.Peek(2); err == nil && next[0] == 0xBB && next[1] == 0xBF {
				_, _ = br.Discard(2)
				continue
			}
		}
		return b, lines, br.UnreadByte()
	}
}

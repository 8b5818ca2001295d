// Package chunker splits documents into segments sized for a single
// model call. Cover sheets are page-oriented and full of tables, so the
// splitter breaks on page boundaries first, never splits a line, carries
// an overlap window across cuts, and re-emits table headers at the top
// of continuation segments so split tables stay interpretable.
package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coverlight/intake/document"
)

// charsPerToken is the approximate average characters per token for GPT tokenizers.
const charsPerToken = 4

// Config holds segmentation configuration.
type Config struct {
	// MaxSegmentTokens is the segment size ceiling. A segment may exceed
	// it only when a single line does.
	MaxSegmentTokens int `yaml:"max_segment_tokens"`

	// OverlapTokens is the size of the trailing window duplicated into
	// the next segment at a cut.
	OverlapTokens int `yaml:"overlap_tokens"`

	// MinSegmentTokens is the minimum segment size; smaller segments are
	// merged into their successor.
	MinSegmentTokens int `yaml:"min_segment_tokens"`
}

// DefaultConfig returns segmentation defaults.
func DefaultConfig() Config {
	return Config{
		MaxSegmentTokens: 800,
		OverlapTokens:    100,
		MinSegmentTokens: 50,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxSegmentTokens <= 0 {
		return fmt.Errorf("MaxSegmentTokens must be positive, got %d", c.MaxSegmentTokens)
	}
	if c.OverlapTokens < 0 {
		return fmt.Errorf("OverlapTokens must not be negative, got %d", c.OverlapTokens)
	}
	if c.OverlapTokens >= c.MaxSegmentTokens {
		return fmt.Errorf("OverlapTokens (%d) must be less than MaxSegmentTokens (%d)", c.OverlapTokens, c.MaxSegmentTokens)
	}
	if c.MinSegmentTokens <= 0 {
		return fmt.Errorf("MinSegmentTokens must be positive, got %d", c.MinSegmentTokens)
	}
	if c.MinSegmentTokens >= c.MaxSegmentTokens {
		return fmt.Errorf("MinSegmentTokens (%d) must be less than MaxSegmentTokens (%d)", c.MinSegmentTokens, c.MaxSegmentTokens)
	}
	return nil
}

// Chunker splits documents into segments.
type Chunker struct {
	config Config
}

// New creates a new Chunker with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Chunker, error) {
	if cfg.MaxSegmentTokens == 0 {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: cfg}, nil
}

// MustNew creates a new Chunker, panicking on invalid config.
// Use for known-good configurations.
func MustNew(cfg Config) *Chunker {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// NewDefault creates a Chunker with default configuration.
func NewDefault() *Chunker {
	return MustNew(DefaultConfig())
}

// SegmentSet segments every document of a set, numbering segments
// contiguously across the whole submission.
func (c *Chunker) SegmentSet(set document.Set) []document.Segment {
	var all []document.Segment
	for _, doc := range set.Documents {
		all = append(all, c.Segment(doc)...)
	}
	for i := range all {
		all[i].Index = i
	}
	return all
}

// Segment splits one document into segments.
func (c *Chunker) Segment(doc document.Document) []document.Segment {
	pages := splitPages(doc.Content)

	var segs []document.Segment
	section := ""
	for _, p := range pages {
		ps := &pageSplitter{config: c.config, fileID: doc.ID, page: p.number, section: section}
		for _, line := range strings.Split(p.content, "\n") {
			ps.add(line)
		}
		segs = append(segs, ps.close()...)
		section = ps.section
	}

	segs = c.mergeSmall(segs)
	for i := range segs {
		segs[i].Index = i
	}
	return segs
}

// page is one page of raw content.
type page struct {
	number  int
	content string
}

// pageMarkerRe matches textual page markers ("Page 2", "--- Page 2 of 5 ---").
var pageMarkerRe = regexp.MustCompile(`(?i)^\s*-*\s*page\s+(\d+)(?:\s+of\s+\d+)?\s*-*\s*$`)

// splitPages breaks content on form feeds, or on textual page markers
// when no form feeds are present. Content with neither is one page.
func splitPages(content string) []page {
	if strings.Contains(content, "\f") {
		parts := strings.Split(content, "\f")
		pages := make([]page, 0, len(parts))
		for i, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			pages = append(pages, page{number: i + 1, content: part})
		}
		if len(pages) > 0 {
			return pages
		}
		return []page{{number: 1, content: content}}
	}

	lines := strings.Split(content, "\n")
	var pages []page
	var cur []string
	num := 1

	flush := func() {
		if len(cur) > 0 && strings.TrimSpace(strings.Join(cur, "\n")) != "" {
			pages = append(pages, page{number: num, content: strings.Join(cur, "\n")})
		}
		cur = nil
	}

	for _, line := range lines {
		if m := pageMarkerRe.FindStringSubmatch(line); m != nil {
			flush()
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				num = n
			} else {
				num++
			}
			continue
		}
		cur = append(cur, line)
	}
	flush()

	if len(pages) == 0 {
		return []page{{number: 1, content: content}}
	}
	return pages
}

// pageSplitter accumulates lines into segments within one page. Lines
// never split; cuts happen between lines, seeded with the overlap tail
// and the open table's header when a table spans the cut.
type pageSplitter struct {
	config  Config
	fileID  string
	page    int
	section string

	segs    []document.Segment
	cur     []string
	seedLen int

	header   []string
	inTable  bool
	lastLine string
}

func (ps *pageSplitter) add(line string) {
	if ps.tokensWith(line) > ps.config.MaxSegmentTokens && len(ps.cur) > ps.seedLen {
		ps.cut()
	}
	ps.cur = append(ps.cur, line)
	ps.track(line)
}

// tokensWith estimates the segment size after appending line.
func (ps *pageSplitter) tokensWith(line string) int {
	chars := len(line)
	for _, l := range ps.cur {
		chars += len(l) + 1
	}
	return (chars + charsPerToken - 1) / charsPerToken
}

// track updates section and table state after a line is taken.
func (ps *pageSplitter) track(line string) {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(trimmed, "#"):
		ps.section = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		ps.inTable = false
		ps.header = nil
	case isTableSeparator(trimmed):
		if isTableRow(strings.TrimSpace(ps.lastLine)) {
			ps.header = []string{ps.lastLine, line}
		}
		ps.inTable = true
	case isTableRow(trimmed):
		if !ps.inTable {
			ps.inTable = true
			ps.header = []string{line}
		}
	case trimmed == "":
		ps.inTable = false
		ps.header = nil
	}

	ps.lastLine = line
}

// cut closes the current segment and seeds the next with the overlap
// tail, prefixed by the open table's header when one is not already in
// the tail.
func (ps *pageSplitter) cut() {
	ps.emit()

	tail := overlapTail(ps.cur, ps.config.OverlapTokens)
	var seed []string
	if ps.inTable && len(ps.header) > 0 && !containsLine(tail, ps.header[0]) {
		seed = append(seed, ps.header...)
	}
	seed = append(seed, tail...)

	ps.cur = seed
	ps.seedLen = len(seed)
}

// close emits any remaining content and returns the page's segments.
func (ps *pageSplitter) close() []document.Segment {
	if len(ps.cur) > ps.seedLen {
		ps.emit()
	}
	return ps.segs
}

func (ps *pageSplitter) emit() {
	content := strings.Join(ps.cur, "\n")
	if strings.TrimSpace(content) == "" {
		return
	}
	ps.segs = append(ps.segs, document.Segment{
		FileID:     ps.fileID,
		Content:    content,
		Section:    ps.section,
		PageStart:  ps.page,
		PageEnd:    ps.page,
		TokenCount: estimateTokens(content),
	})
}

// overlapTail returns the trailing lines whose combined size fits the
// overlap budget, always leaving at least one line un-duplicated.
func overlapTail(lines []string, budget int) []string {
	if budget <= 0 || len(lines) <= 1 {
		return nil
	}
	chars := 0
	start := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		chars += len(lines[i]) + 1
		if (chars+charsPerToken-1)/charsPerToken > budget {
			break
		}
		start = i
	}
	if start == len(lines) {
		return nil
	}
	tail := make([]string, len(lines)-start)
	copy(tail, lines[start:])
	return tail
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

// mergeSmall combines segments that are below minimum size into their
// successor, keeping the page span of both.
func (c *Chunker) mergeSmall(segs []document.Segment) []document.Segment {
	if len(segs) <= 1 {
		return segs
	}

	var result []document.Segment
	for i := 0; i < len(segs); i++ {
		seg := segs[i]

		if seg.TokenCount < c.config.MinSegmentTokens && i < len(segs)-1 && segs[i+1].FileID == seg.FileID {
			next := segs[i+1]
			combined := seg.Content + "\n\n" + next.Content
			combinedTokens := estimateTokens(combined)

			if combinedTokens <= c.config.MaxSegmentTokens {
				section := seg.Section
				if section == "" {
					section = next.Section
				}
				segs[i+1] = document.Segment{
					FileID:     seg.FileID,
					Content:    combined,
					Section:    section,
					PageStart:  seg.PageStart,
					PageEnd:    next.PageEnd,
					TokenCount: combinedTokens,
				}
				continue
			}
		}

		result = append(result, seg)
	}

	return result
}

// estimateTokens estimates token count using the chars/token heuristic.
func estimateTokens(content string) int {
	if content == "" {
		return 0
	}
	return (len(content) + charsPerToken - 1) / charsPerToken
}

// isTableRow checks if a line looks like a table row (markdown pipes or
// multi-column tab layout).
func isTableRow(trimmed string) bool {
	if strings.HasPrefix(trimmed, "|") {
		return true
	}
	if strings.Count(trimmed, "|") >= 2 {
		return true
	}
	return strings.Count(trimmed, "\t") >= 2
}

// isTableSeparator checks if a line is a markdown header separator row.
func isTableSeparator(trimmed string) bool {
	if !strings.Contains(trimmed, "-") {
		return false
	}
	for _, ch := range trimmed {
		switch ch {
		case '|', '-', ':', ' ', '\t', '+':
		default:
			return false
		}
	}
	return strings.Contains(trimmed, "|") || strings.Contains(trimmed, "+")
}

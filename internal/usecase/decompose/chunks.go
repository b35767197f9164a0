package decompose

import (
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kailas-cloud/citeqa/internal/domain/document"
)

// sentenceEnd matches terminal punctuation plus trailing whitespace, or a blank line.
var sentenceEnd = regexp.MustCompile(`[.!?]+["'\x{201D}\x{2019})\]]*\s+|\n[ \t]*\n\s*`)

type span struct{ start, end int }

// chunkSections builds sentence-window chunks per section. Chunk contents are exact slices
// of their section and consecutive windows touch or overlap, so every byte is covered.
func (d *Decomposer) chunkSections(documentID string, sections []document.Section) []document.Chunk {
	var chunks []document.Chunk
	for _, s := range sections {
		for _, w := range d.windows(s.Content) {
			idx := len(chunks)
			chunks = append(chunks, document.Chunk{
				DocumentID:   documentID,
				ID:           chunkID(documentID, idx),
				Index:        idx,
				SectionOrder: s.Order,
				Content:      s.Content[w.start:w.end],
			})
		}
	}
	return chunks
}

func (d *Decomposer) windows(content string) []span {
	sentences := d.sentences(content)
	if len(sentences) == 0 {
		return nil
	}

	var out []span
	for i := 0; i < len(sentences); {
		j := i
		size := 0
		for j < len(sentences) && j-i < d.sentencesPerChunk {
			l := sentences[j].end - sentences[j].start
			if j > i && size+l > d.maxChunkChars {
				break
			}
			size += l
			j++
		}
		out = append(out, span{start: sentences[i].start, end: sentences[j-1].end})
		if j == len(sentences) {
			break
		}
		next := j - d.overlap
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return out
}

// sentences tiles content into sentence spans, hard-splitting any span over maxChunkChars.
func (d *Decomposer) sentences(content string) []span {
	if content == "" {
		return nil
	}
	var out []span
	start := 0
	for _, m := range sentenceEnd.FindAllStringIndex(content, -1) {
		out = d.appendSplit(out, content, start, m[1])
		start = m[1]
	}
	if start < len(content) {
		out = d.appendSplit(out, content, start, len(content))
	}
	return out
}

func (d *Decomposer) appendSplit(out []span, s string, start, end int) []span {
	for end-start > d.maxChunkChars {
		cut := start + d.maxChunkChars
		for cut > start && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if ws := lastSpace(s[start:cut]); ws > d.maxChunkChars/2 {
			cut = start + ws
		}
		if cut == start {
			_, size := utf8.DecodeRuneInString(s[start:])
			cut = start + size
		}
		out = append(out, span{start: start, end: cut})
		start = cut
	}
	if end > start {
		out = append(out, span{start: start, end: end})
	}
	return out
}

// lastSpace returns the offset just after the last whitespace rune in s, or 0.
func lastSpace(s string) int {
	for i := len(s); i > 0; {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		if unicode.IsSpace(r) {
			return i
		}
		i -= size
	}
	return 0
}

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://citeqa/chunks"))

// chunkID is stable for a document and chunk index, so re-ingesting yields the same IDs.
func chunkID(documentID string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentID+"/"+strconv.Itoa(index))).String()
}

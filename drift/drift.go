// Package drift notices when the upstream page changes shape.
//
// The weather page is read through hashed CSS class names that rotate
// whenever upstream redeploys. Extraction then quietly falls back to
// placeholders, so the crawler fingerprints every fetched document and logs
// when the structure moves away from the previous crawl.
package drift

import (
	"hash/fnv"
	"math/bits"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// shingleSize is the number of consecutive element tokens per feature.
const shingleSize = 3

// Fingerprint computes a 64-bit SimHash of the document's element structure.
// Each element contributes "tag.class1.class2" (classes sorted), so a class
// rename shows up as drift while text changes do not. Empty input yields 0.
func Fingerprint(doc string) uint64 {
	tokens := elementTokens(doc)
	if len(tokens) == 0 {
		return 0
	}

	features := tokens
	if len(tokens) >= shingleSize {
		features = make([]string, 0, len(tokens)-shingleSize+1)
		for i := 0; i+shingleSize <= len(tokens); i++ {
			features = append(features, strings.Join(tokens[i:i+shingleSize], " "))
		}
	}

	var weights [64]int
	for _, f := range features {
		h := fnv.New64a()
		_, _ = h.Write([]byte(f))
		sum := h.Sum64()
		for bit := 0; bit < 64; bit++ {
			if sum&(1<<uint(bit)) != 0 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}

	var fp uint64
	for bit, w := range weights {
		if w > 0 {
			fp |= 1 << uint(bit)
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// elementTokens walks the document and returns one token per start tag.
func elementTokens(doc string) []string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var tokens []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tokens
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			tokens = append(tokens, elementToken(tok))
		}
	}
}

func elementToken(tok html.Token) string {
	var classes []string
	for _, a := range tok.Attr {
		if a.Key == "class" {
			classes = append(classes, strings.Fields(a.Val)...)
		}
	}
	if len(classes) == 0 {
		return tok.Data
	}
	sort.Strings(classes)
	return tok.Data + "." + strings.Join(classes, ".")
}

// Observation is the outcome of comparing one document to the previous one.
type Observation struct {
	Fingerprint uint64
	Distance    int
	// First is true when there was nothing to compare against.
	First bool
	// Changed is true when Distance exceeds the detector's threshold.
	Changed bool
}

// Detector remembers the last fingerprint. It is safe for concurrent use.
type Detector struct {
	threshold int

	mu   sync.Mutex
	last uint64
	seen bool
}

// NewDetector creates a Detector that reports a change when two successive
// fingerprints differ in more than threshold bits.
func NewDetector(threshold int) *Detector {
	return &Detector{threshold: threshold}
}

// Observe fingerprints doc, compares it with the previous document, and
// records it as the new baseline.
func (d *Detector) Observe(doc string) Observation {
	fp := Fingerprint(doc)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.seen {
		d.last, d.seen = fp, true
		return Observation{Fingerprint: fp, First: true}
	}

	dist := Distance(d.last, fp)
	d.last = fp
	return Observation{
		Fingerprint: fp,
		Distance:    dist,
		Changed:     dist > d.threshold,
	}
}

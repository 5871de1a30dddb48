package orchestrator

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// Pacer shapes streamed text before it reaches the consumer. Pace hands
// every byte of chunk to emit, in order, and returns false once emit
// refuses a piece or ctx is done.
type Pacer interface {
	Pace(ctx context.Context, chunk string, emit func(piece string) bool) bool
}

// NoPacing forwards chunks unchanged.
type NoPacing struct{}

func (NoPacing) Pace(_ context.Context, chunk string, emit func(string) bool) bool {
	return emit(chunk)
}

// PacingConfig tunes TypingPacer.
type PacingConfig struct {
	// Threshold is the largest chunk, in runes, forwarded unsplit.
	Threshold int
	MinPiece  int
	MaxPiece  int
	MinDelay  time.Duration
	MaxDelay  time.Duration
}

// DefaultPacingConfig returns the interactive pacing settings.
func DefaultPacingConfig() PacingConfig {
	return PacingConfig{
		Threshold: 24,
		MinPiece:  3,
		MaxPiece:  8,
		MinDelay:  15 * time.Millisecond,
		MaxDelay:  35 * time.Millisecond,
	}
}

// TypingPacer splits oversized chunks into short pseudo-random pieces with
// a small delay between them. It never separates a combining mark from
// its base character.
type TypingPacer struct {
	cfg PacingConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTypingPacer creates a pacer. The seed makes piece sizes reproducible.
func NewTypingPacer(cfg PacingConfig, seed uint64) *TypingPacer {
	def := DefaultPacingConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MinPiece <= 0 {
		cfg.MinPiece = def.MinPiece
	}
	if cfg.MaxPiece < cfg.MinPiece {
		cfg.MaxPiece = cfg.MinPiece
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &TypingPacer{cfg: cfg, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *TypingPacer) Pace(ctx context.Context, chunk string, emit func(string) bool) bool {
	for i, piece := range p.split(chunk) {
		if i > 0 {
			if err := sleep(ctx, p.delay()); err != nil {
				return false
			}
		}
		if !emit(piece) {
			return false
		}
	}
	return true
}

// split cuts chunk on rune boundaries. Invalid UTF-8 bytes are kept as-is.
func (p *TypingPacer) split(chunk string) []string {
	if utf8.RuneCountInString(chunk) <= p.cfg.Threshold {
		return []string{chunk}
	}

	offsets := make([]int, 0, len(chunk)+1)
	for i := range chunk {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(chunk))
	runes := len(offsets) - 1

	var pieces []string
	for start := 0; start < runes; {
		end := start + p.pieceSize()
		if end > runes {
			end = runes
		}
		for end < runes && combining(chunk[offsets[end]:]) {
			end++
		}
		pieces = append(pieces, chunk[offsets[start]:offsets[end]])
		start = end
	}
	return pieces
}

func combining(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.In(r, unicode.Mn, unicode.Me)
}

func (p *TypingPacer) pieceSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.MinPiece + p.rng.IntN(p.cfg.MaxPiece-p.cfg.MinPiece+1)
}

func (p *TypingPacer) delay() time.Duration {
	span := p.cfg.MaxDelay - p.cfg.MinDelay
	if span <= 0 {
		return p.cfg.MinDelay
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.MinDelay + time.Duration(p.rng.Int64N(int64(span)+1))
}

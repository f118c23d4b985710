// Package extractor finds US postal addresses in free text. A window of up
// to MaxWindowTokens tokens is opened at every numeric token and classified
// by a fixed sequence of steps; each window ends up either valid or tagged
// with the step that rejected it.
package extractor

import (
	"context"
	"runtime"

	"github.com/address-extractor/internal/normalizer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Extractor scans documents against one set of reference lookups. It holds
// no per-document state and is safe for concurrent use.
type Extractor struct {
	lookups Lookups
	logger  *zap.Logger
}

// New creates an Extractor. A nil logger disables logging.
func New(lookups Lookups, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{lookups: lookups, logger: logger}
}

// ParseWindow classifies the window that starts at document index offset.
// Only the first MaxWindowTokens raw tokens are considered.
func (e *Extractor) ParseWindow(raw []string, offset int) *Address {
	if len(raw) > MaxWindowTokens {
		raw = raw[:MaxWindowTokens]
	}
	addr := newAddress(normalizer.CleanTokens(raw), offset)
	runPipeline(addr, e.lookups)

	if ce := e.logger.Check(zap.DebugLevel, "window classified"); ce != nil {
		fields := []zap.Field{
			zap.Int("offset", offset),
			zap.Bool("valid", addr.Valid()),
			zap.String("rendered", addr.Render()),
		}
		if !addr.Valid() {
			fields = append(fields, zap.String("tag", string(addr.Tag())))
		}
		ce.Write(fields...)
	}
	return addr
}

// Parse treats text as a single address starting at its first token.
func (e *Extractor) Parse(text string) *Address {
	return e.ParseWindow(normalizer.Tokenize(text), 0)
}

// ExtractAll returns every window opened in text, valid or not, in document
// order. Tokens up to and including the zipcode of a valid address never
// open another window.
func (e *Extractor) ExtractAll(text string) []*Address {
	tokens := normalizer.Tokenize(text)
	addresses := make([]*Address, 0)
	skipTo := 0
	for i, tok := range tokens {
		if i < skipTo || !normalizer.IsNumeric(tok) {
			continue
		}
		addr := e.ParseWindow(tokens[i:], i)
		if addr.Valid() {
			skipTo = addr.NextOffset()
		}
		addresses = append(addresses, addr)
	}
	e.logger.Debug("document scanned",
		zap.Int("tokens", len(tokens)),
		zap.Int("windows", len(addresses)))
	return addresses
}

// ExtractAllParallel classifies every numeric-start window concurrently and
// then applies the skip rule in document order, so the result matches
// ExtractAll. workers <= 0 uses GOMAXPROCS.
func (e *Extractor) ExtractAllParallel(ctx context.Context, text string, workers int) ([]*Address, error) {
	tokens := normalizer.Tokenize(text)
	var starts []int
	for i, tok := range tokens {
		if normalizer.IsNumeric(tok) {
			starts = append(starts, i)
		}
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	windows := make([]*Address, len(starts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for n, start := range starts {
		n, start := n, start
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			windows[n] = e.ParseWindow(tokens[start:], start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	addresses := make([]*Address, 0, len(windows))
	skipTo := 0
	for _, addr := range windows {
		if addr.Offset() < skipTo {
			continue
		}
		if addr.Valid() {
			skipTo = addr.NextOffset()
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// ValidOnly filters a scan result down to valid addresses.
func ValidOnly(addresses []*Address) []*Address {
	out := make([]*Address, 0, len(addresses))
	for _, a := range addresses {
		if a.Valid() {
			out = append(out, a)
		}
	}
	return out
}

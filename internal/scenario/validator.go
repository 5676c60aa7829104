package scenario

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"SingularityDashboard/internal/techtree"
)

// DefaultCacheSize is the number of validation results kept when no size is
// configured.
const DefaultCacheSize = 128

// ValidationError reports a scenario payload that decoded but failed
// validation. It unwraps to ErrInvalidScenario.
type ValidationError struct {
	Source      string
	Diagnostics []techtree.Diagnostic
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s is invalid", e.Source)
	if len(e.Diagnostics) > 0 {
		fmt.Fprintf(&b, ": %s", e.Diagnostics[0].Message)
	}
	if n := len(e.Diagnostics) - 1; n > 0 {
		fmt.Fprintf(&b, " (and %d more)", n)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrInvalidScenario }

type cacheKey [sha256.Size]byte

// Validator decodes and validates scenario payloads, remembering recent
// results keyed by payload digest. Validation is deterministic, so a cached
// result is always the result a fresh run would produce.
type Validator struct {
	cache  *lru.Cache[cacheKey, techtree.Result]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewValidator creates a validator caching up to size results.
func NewValidator(size int) (*Validator, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, techtree.Result](size)
	if err != nil {
		return nil, fmt.Errorf("creating validation cache: %w", err)
	}
	return &Validator{cache: cache}, nil
}

// Validate decodes data and validates the result. Decode failures are
// returned as errors; content problems are reported in the Result.
func (v *Validator) Validate(data []byte, f Format) (techtree.Result, error) {
	candidates := []Format{f}
	if f == FormatAuto {
		candidates = autoCandidates(data)
	}
	for _, c := range candidates {
		if res, ok := v.cache.Get(keyFor(c, data)); ok {
			v.hits.Add(1)
			return res, nil
		}
	}
	v.misses.Add(1)

	var (
		raw  any
		used = f
		err  error
	)
	if f == FormatAuto {
		raw, used, err = decodeAuto(data)
	} else {
		raw, err = decode(data, f)
	}
	if err != nil {
		return techtree.Result{}, err
	}
	res := techtree.Validate(raw)
	v.cache.Add(keyFor(used, data), res)
	return res, nil
}

// keyFor hashes the resolved format together with the payload.
func keyFor(f Format, data []byte) cacheKey {
	h := sha256.New()
	h.Write([]byte(f))
	h.Write([]byte{0})
	h.Write(data)
	var key cacheKey
	h.Sum(key[:0])
	return key
}

// Load decodes and validates data, returning the scenario or an error that
// wraps ErrMalformedScenario or ErrInvalidScenario.
func (v *Validator) Load(source string, data []byte, f Format) (*techtree.Scenario, error) {
	res, err := v.Validate(data, f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", source, err)
	}
	return fromResult(source, res)
}

func fromResult(source string, res techtree.Result) (*techtree.Scenario, error) {
	if !res.Valid {
		return nil, &ValidationError{Source: source, Diagnostics: res.Diagnostics}
	}
	return res.Scenario, nil
}

// CacheStats reports cache hits and misses since creation.
func (v *Validator) CacheStats() (hits, misses uint64) {
	return v.hits.Load(), v.misses.Load()
}

// CacheLen reports how many results are cached.
func (v *Validator) CacheLen() int {
	return v.cache.Len()
}

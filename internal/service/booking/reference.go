package booking

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	referencePrefix    = "TRV"
	referenceSuffixLen = 6
	// Crockford base32 alphabet; no I, L, O or U.
	referenceAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// ReferenceGenerator produces human-readable booking references of the form
// TRV-<base36 millis>-<random>. The millisecond part never repeats within a
// process, so two references from one generator never collide; collisions
// across processes are left to the random suffix and the unique index.
type ReferenceGenerator struct {
	mu     sync.Mutex
	lastMs int64
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{}
}

func (g *ReferenceGenerator) Next(now time.Time) string {
	g.mu.Lock()
	ms := now.UnixMilli()
	if ms <= g.lastMs {
		ms = g.lastMs + 1
	}
	g.lastMs = ms
	g.mu.Unlock()

	return referencePrefix + "-" +
		strings.ToUpper(strconv.FormatInt(ms, 36)) + "-" +
		randomSuffix()
}

func randomSuffix() string {
	random := uuid.New()
	var b strings.Builder
	b.Grow(referenceSuffixLen)
	for i := 0; i < referenceSuffixLen; i++ {
		b.WriteByte(referenceAlphabet[int(random[i])%len(referenceAlphabet)])
	}
	return b.String()
}

package orders

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const suffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NumberGenerator produces human-readable order numbers of the form
// <PREFIX>-<base36 unix millis>-<4 random base36 chars>.
type NumberGenerator struct {
	prefix string
	now    func() time.Time
	intn   func(n int) int
}

func NewNumberGenerator(prefix string) *NumberGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "OPAL"
	}
	return &NumberGenerator{prefix: prefix, now: time.Now, intn: rand.IntN}
}

func (g *NumberGenerator) Next() string {
	stamp := strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36))
	var b strings.Builder
	b.Grow(len(g.prefix) + len(stamp) + 6)
	b.WriteString(g.prefix)
	b.WriteByte('-')
	b.WriteString(stamp)
	b.WriteByte('-')
	for i := 0; i < 4; i++ {
		b.WriteByte(suffixAlphabet[g.intn(len(suffixAlphabet))])
	}
	return b.String()
}

package redis

import "strings"

const defaultPrefix = "sf"

// Keyspace builds colon separated keys under a shared prefix. Blank parts
// are dropped.
type Keyspace string

func (k Keyspace) Key(parts ...string) string {
	prefix := strings.TrimSpace(string(k))
	if prefix == "" {
		prefix = defaultPrefix
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (k Keyspace) Cart(tenant, session string) string { return k.Key("cart", tenant, session) }

func (k Keyspace) Idempotency(scope, id string) string { return k.Key("idempotency", scope, id) }

func (k Keyspace) RateLimit(scope string) string { return k.Key("rate_limit", scope) }

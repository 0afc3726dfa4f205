package stripe

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MetadataValueLimit is the longest value Stripe accepts for a metadata key.
	MetadataValueLimit = 500
	// maxMetadataChunks leaves room for other keys under Stripe's 50-key cap.
	maxMetadataChunks = 40
)

var ErrMetadataTooLarge = errors.New("metadata value exceeds the chunk budget")

// SplitMetadata spreads value over key_0, key_1, ... so every part fits
// MetadataValueLimit. Parts break on rune boundaries.
func SplitMetadata(key, value string) (map[string]string, error) {
	out := map[string]string{}
	for i := 0; value != ""; i++ {
		if i == maxMetadataChunks {
			return nil, ErrMetadataTooLarge
		}
		cut := len(value)
		if cut > MetadataValueLimit {
			cut = MetadataValueLimit
			for cut > 0 && !utf8.RuneStart(value[cut]) {
				cut--
			}
		}
		out[chunkKey(key, i)] = value[:cut]
		value = value[cut:]
	}
	return out, nil
}

// JoinMetadata reassembles a value written by SplitMetadata. A value stored
// whole under key is returned as is.
func JoinMetadata(meta map[string]string, key string) string {
	if v, ok := meta[key]; ok {
		return v
	}
	var b strings.Builder
	for i := 0; i < maxMetadataChunks; i++ {
		part, ok := meta[chunkKey(key, i)]
		if !ok {
			break
		}
		b.WriteString(part)
	}
	return b.String()
}

func chunkKey(key string, i int) string {
	return key + "_" + strconv.Itoa(i)
}

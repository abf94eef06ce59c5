package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type CacheKind string

const KindPrice CacheKind = "price"

func HistoryKind(p Period) CacheKind { return CacheKind("history:" + string(p)) }

// CacheKey identifies one cache slot. Keys are independent of each other.
type CacheKey struct {
	Ticker string
	Kind   CacheKind
}

func PriceKey(ticker string) CacheKey { return CacheKey{Ticker: ticker, Kind: KindPrice} }

func HistoryKey(ticker string, p Period) CacheKey {
	return CacheKey{Ticker: ticker, Kind: HistoryKind(p)}
}

func (k CacheKey) String() string { return k.Ticker + "|" + string(k.Kind) }

type cacheRecord struct {
	FetchedAt *float64        `json:"fetchedAt"`
	Payload   json.RawMessage `json:"payload"`
}

// EncodeCacheRecord renders the persisted layout {"fetchedAt": <epoch seconds>, "payload": ...}.
func EncodeCacheRecord(fetchedAt time.Time, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	secs := float64(fetchedAt.UnixNano()) / 1e9
	return json.Marshal(cacheRecord{FetchedAt: &secs, Payload: raw})
}

// DecodeCacheRecord parses a persisted record. Anything that does not match the
// layout yields ErrCorruptEntry.
func DecodeCacheRecord(data []byte) (time.Time, json.RawMessage, error) {
	var rec cacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return time.Time{}, nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if rec.FetchedAt == nil || math.IsNaN(*rec.FetchedAt) || math.IsInf(*rec.FetchedAt, 0) {
		return time.Time{}, nil, fmt.Errorf("%w: missing fetchedAt", ErrCorruptEntry)
	}
	if len(rec.Payload) == 0 || bytes.Equal(rec.Payload, []byte("null")) {
		return time.Time{}, nil, fmt.Errorf("%w: missing payload", ErrCorruptEntry)
	}
	whole, frac := math.Modf(*rec.FetchedAt)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))), rec.Payload, nil
}

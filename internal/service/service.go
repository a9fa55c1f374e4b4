// Package service holds the document policies layered over the object store:
// defaults on first use, title derivation, createdAt preservation and bounded fan-out reads.
package service

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"vaultapi/internal/transfer"
)

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrNotFound        = errors.New("document not found")
	ErrInvalidKey      = transfer.ErrInvalidKey
	ErrInvalidContacts = errors.New("invalid contacts")
	ErrTooManyContacts = errors.New("too many contacts")
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// TimeIDGenerator produces ids of the form <base36 unix millis>-<8 random chars>, which sort
// roughly by creation time and satisfy keys.IsSafeID.
type TimeIDGenerator struct {
	Clock Clock
}

func (g TimeIDGenerator) New() string {
	c := g.Clock
	if c == nil {
		c = RealClock{}
	}
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(c.Now().UnixMilli(), 36) + "-" + rnd
}

// timeLayout matches JavaScript's Date.toISOString, the format existing documents use.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, err == nil
}

// fields is a leniently decoded JSON object: unknown or mistyped fields read as absent.
type fields map[string]any

func decodeFields(b []byte) (fields, error) {
	f := fields{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return f, nil
}

func (f fields) str(name string) (string, bool) {
	s, ok := f[name].(string)
	return s, ok
}

func (f fields) num(name string) (float64, bool) {
	n, ok := f[name].(float64)
	return n, ok
}

func strPtr(s string) *string { return &s }

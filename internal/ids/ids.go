// Package ids mints primary keys for accounts, posts, threads and comments.
package ids

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nrednav/cuid2"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/ksuid"
)

// Strategy names accepted by New.
const (
	StrategyUUID   = "uuid"
	StrategyULID   = "ulid"
	StrategyKSUID  = "ksuid"
	StrategyNanoID = "nanoid"
	StrategyCUID2  = "cuid2"
)

const (
	nanoIDSize     = 21
	nanoIDAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	cuid2Length    = 24
)

// Generator mints and recognises identifiers of one format.
type Generator interface {
	NewID() string
	Valid(id string) bool
	Name() string
}

// New returns the generator for strategy. An empty strategy means ULID,
// whose lexical order follows creation time.
func New(strategy string) (Generator, error) {
	switch strings.ToLower(strategy) {
	case "", StrategyULID:
		return &ulidGen{entropy: ulid.Monotonic(rand.Reader, 0)}, nil
	case StrategyUUID:
		return uuidGen{}, nil
	case StrategyKSUID:
		return ksuidGen{}, nil
	case StrategyNanoID:
		return nanoGen{}, nil
	case StrategyCUID2:
		gen, err := cuid2.Init(cuid2.WithLength(cuid2Length))
		if err != nil {
			return nil, fmt.Errorf("failed to init cuid2: %w", err)
		}
		return cuid2Gen{generate: gen}, nil
	default:
		return nil, fmt.Errorf("unknown id strategy: %s", strategy)
	}
}

type ulidGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *ulidGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

func (g *ulidGen) Valid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

func (g *ulidGen) Name() string { return StrategyULID }

type uuidGen struct{}

func (uuidGen) NewID() string { return uuid.New().String() }

func (uuidGen) Valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (uuidGen) Name() string { return StrategyUUID }

type ksuidGen struct{}

func (ksuidGen) NewID() string { return ksuid.New().String() }

func (ksuidGen) Valid(id string) bool {
	_, err := ksuid.Parse(id)
	return err == nil
}

func (ksuidGen) Name() string { return StrategyKSUID }

type nanoGen struct{}

func (nanoGen) NewID() string {
	return gonanoid.MustGenerate(nanoIDAlphabet, nanoIDSize)
}

func (nanoGen) Valid(id string) bool {
	if len(id) != nanoIDSize {
		return false
	}
	for _, c := range id {
		if !strings.ContainsRune(nanoIDAlphabet, c) {
			return false
		}
	}
	return true
}

func (nanoGen) Name() string { return StrategyNanoID }

type cuid2Gen struct {
	generate func() string
}

func (g cuid2Gen) NewID() string { return g.generate() }

func (g cuid2Gen) Valid(id string) bool {
	return len(id) == cuid2Length && cuid2.IsCuid(id)
}

func (g cuid2Gen) Name() string { return StrategyCUID2 }

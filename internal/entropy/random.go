// Package entropy supplies the probability draws that gate random life
// events. Draws come from random.org when a key is configured, with a
// crypto/rand fallback so a dead API never blocks a turn.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

const (
	defaultEndpoint = "https://api.random.org/json-rpc/4/invoke"

	// The pool tops up by batchSize draws whenever it dips below lowWater,
	// so a burst of turns rarely waits on the network.
	batchSize = 100
	lowWater  = 10
)

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	APIKey        string `json:"apiKey"`
	N             int    `json:"n"`
	DecimalPlaces int    `json:"decimalPlaces"`
}

type rpcResponse struct {
	Result struct {
		Random struct {
			Data []float64 `json:"data"`
		} `json:"random"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Source provides random float64 draws in [0, 1). A nil *Source is valid
// and always uses crypto/rand.
type Source struct {
	apiKey   string
	endpoint string
	client   *http.Client

	mu   sync.Mutex
	pool []float64
}

// NewSource creates a random.org-backed source. Returns nil when apiKey is
// empty; draws then fall back to crypto/rand.
func NewSource(apiKey string) *Source {
	if apiKey == "" {
		return nil
	}
	return &Source{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Float returns a draw in [0, 1), topping up the remote pool when it runs
// low and degrading to crypto/rand on any API trouble.
func (s *Source) Float() float64 {
	if s == nil {
		return cryptoFloat()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pool) < lowWater {
		batch, err := s.fetch(batchSize)
		if err != nil {
			slog.Debug("random.org refill failed", "error", err)
		} else {
			s.pool = append(s.pool, batch...)
			slog.Debug("random.org pool refilled", "count", len(batch))
		}
	}
	if len(s.pool) == 0 {
		return cryptoFloat()
	}

	val := s.pool[0]
	s.pool = s.pool[1:]
	return val
}

// fetch requests n decimal fractions over the random.org JSON-RPC API.
func (s *Source) fetch(n int) ([]float64, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "generateDecimalFractions",
		Params:  rpcParams{APIKey: s.apiKey, N: n, DecimalPlaces: 6},
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.client.Post(s.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("api error: %s", decoded.Error.Message)
	}
	if len(decoded.Result.Random.Data) == 0 {
		return nil, errors.New("empty batch")
	}
	return decoded.Result.Random.Data, nil
}

// cryptoFloat generates a uniform float64 in [0, 1) from crypto/rand: the
// top 52 random bits become the mantissa of a float in [1, 2).
func cryptoFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Should never happen; 0.5 is a safe neutral draw.
		return 0.5
	}
	bits := binary.BigEndian.Uint64(buf[:])
	return math.Float64frombits(0x3FF0000000000000|bits>>12) - 1
}

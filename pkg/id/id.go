// Package id mints the client order ids stamped on every submission before
// it reaches a broker.
package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Two orders minted in the same millisecond must still sort in creation
	// order when the journal is read back.
	entropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns the next order id: a ULID, unique for the session and
// lexicographically ordered by creation time.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	v, err := ulid.New(ulid.Timestamp(time.Now().UTC()), entropy)
	if err != nil {
		panic(err)
	}
	return v.String()
}

package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// Params are the argon2id cost parameters. Memory is in KiB.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams are suitable for interactive logins on server hardware.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher produces and verifies PHC-encoded argon2id hashes.
type Hasher struct {
	params Params
}

// NewHasher validates the cost parameters and returns a Hasher.
func NewHasher(p Params) (*Hasher, error) {
	if p.Memory < minMemoryKB {
		return nil, errors.New("password memory must be >= 8192 KiB")
	}
	if p.Time < minTimeCost {
		return nil, errors.New("password time cost must be >= 1")
	}
	if p.Parallelism < minParallelism {
		return nil, errors.New("password parallelism must be >= 1")
	}
	if p.SaltLength < minSaltLength {
		return nil, errors.New("password salt length must be >= 16")
	}
	if p.KeyLength < minKeyLength {
		return nil, errors.New("password key length must be >= 16")
	}

	return &Hasher{params: p}, nil
}

// Hash derives an argon2id hash of the password under a fresh random salt
// and returns it in PHC string form.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the hash under the parameters embedded in encoded and
// compares in constant time. A malformed encoded hash is an error, not a
// mismatch.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	rec, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		rec.salt,
		rec.time,
		rec.memory,
		rec.parallelism,
		uint32(len(rec.key)),
	)

	return subtle.ConstantTimeCompare(computed, rec.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced under weaker parameters
// than the Hasher's current ones, so callers can transparently upgrade
// stored hashes after a successful verification.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	rec, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	switch {
	case h.params.Memory > rec.memory:
		return true, nil
	case h.params.Time > rec.time:
		return true, nil
	case h.params.Parallelism > rec.parallelism:
		return true, nil
	case h.params.KeyLength != uint32(len(rec.key)):
		return true, nil
	}
	return false, nil
}

type phcRecord struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parsePHC(encoded string) (*phcRecord, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported hash algorithm")
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("missing argon2 version")
	}
	v, err := strconv.Atoi(version)
	if err != nil || v != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	rec := &phcRecord{}
	if err := parseCosts(parts[3], rec); err != nil {
		return nil, err
	}

	rec.salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(rec.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	rec.key, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(rec.key) == 0 {
		return nil, errors.New("invalid key")
	}

	return rec, nil
}

func parseCosts(part string, rec *phcRecord) error {
	var haveM, haveT, haveP bool

	for _, pair := range strings.Split(part, ",") {
		k, val, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid cost entry")
		}

		switch k {
		case "m":
			v, err := strconv.ParseUint(val, 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return errors.New("invalid memory cost")
			}
			rec.memory = uint32(v)
			haveM = true
		case "t":
			v, err := strconv.ParseUint(val, 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return errors.New("invalid time cost")
			}
			rec.time = uint32(v)
			haveT = true
		case "p":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return errors.New("invalid parallelism cost")
			}
			rec.parallelism = uint8(v)
			haveP = true
		default:
			return errors.New("unsupported cost parameter")
		}
	}

	if !haveM || !haveT || !haveP {
		return errors.New("missing cost parameters")
	}
	return nil
}

package game

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Rand é um gerador determinístico derivado de HMAC-SHA256(serverSeed, "jogo:rodada:bloco").
// Dado o seed revelado, qualquer pessoa reproduz o resultado de uma rodada.
type Rand struct {
	key    []byte
	prefix string
	block  int
	buf    []byte
	proof  string
}

func NewRand(serverSeed []byte, game string, roundNumber int64) *Rand {
	r := &Rand{key: serverSeed, prefix: game + ":" + strconv.FormatInt(roundNumber, 10) + ":"}
	r.refill()
	r.proof = hex.EncodeToString(r.buf)
	return r
}

func (r *Rand) refill() {
	mac := hmac.New(sha256.New, r.key)
	mac.Write([]byte(r.prefix + strconv.Itoa(r.block)))
	r.buf = mac.Sum(nil)
	r.block++
}

// Proof é o primeiro bloco HMAC em hex, gravado na rodada para auditoria
func (r *Rand) Proof() string { return r.proof }

func (r *Rand) Uint32() uint32 {
	if len(r.buf) < 4 {
		r.refill()
	}
	v := binary.BigEndian.Uint32(r.buf[:4])
	r.buf = r.buf[4:]
	return v
}

// Intn devolve um inteiro uniforme em [0, n) por amostragem com rejeição
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("game: Intn with non-positive n")
	}
	bound := uint32(n)
	limit := ^uint32(0) - (^uint32(0) % bound)
	for {
		v := r.Uint32()
		if v < limit {
			return int(v % bound)
		}
	}
}

// SeedManager guarda o seed do servidor e o hash publicado nas rodadas
type SeedManager struct {
	seed []byte
	Hash string
}

// NewSeedManager usa o seed hex informado ou gera 32 bytes aleatórios
func NewSeedManager(seedHex string) (*SeedManager, error) {
	var seed []byte
	if seedHex != "" {
		b, err := hex.DecodeString(seedHex)
		if err != nil {
			return nil, fmt.Errorf("decode server seed: %w", err)
		}
		if len(b) < 16 {
			return nil, fmt.Errorf("server seed too short: %d bytes", len(b))
		}
		seed = b
	} else {
		seed = make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("generate server seed: %w", err)
		}
	}
	sum := sha256.Sum256(seed)
	return &SeedManager{seed: seed, Hash: hex.EncodeToString(sum[:])}, nil
}

// Rand devolve o gerador da rodada informada
func (s *SeedManager) Rand(game string, roundNumber int64) *Rand {
	return NewRand(s.seed, game, roundNumber)
}

// Reveal devolve o seed em hex; gravado junto das rodadas e publicado só depois de aposentado
func (s *SeedManager) Reveal() string { return hex.EncodeToString(s.seed) }

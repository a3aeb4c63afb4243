package board

// Zobrist keys identify positions for the perft hash table and the
// persistent result store. Keys come from a fixed-seed PRNG so they are
// identical across runs and processes.
var (
	zobristPiece      [2][6][64]uint64
	zobristEnPassant  [8]uint64  // One per file
	zobristCastling   [16]uint64 // All 16 castling combinations
	zobristSideToMove uint64     // XOR when black to move
)

func init() {
	initZobrist()
}

type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// sparse returns a number with few bits set, the usual shape of a magic.
func (p *prng) sparse() uint64 {
	return p.next() & p.next() & p.next()
}

func initZobrist() {
	rng := newPRNG(0x98F107A2BEEF1234)

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = rng.next()
			}
		}
	}
	for file := 0; file < 8; file++ {
		zobristEnPassant[file] = rng.next()
	}
	for i := 0; i < 16; i++ {
		zobristCastling[i] = rng.next()
	}
	zobristSideToMove = rng.next()
}

// ComputeHash computes the Zobrist key of the position from scratch.
// MakeMove maintains the same value incrementally.
func (p *Position) ComputeHash() uint64 {
	var hash uint64

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				hash ^= zobristPiece[c][pt][bb.PopLSB()]
			}
		}
	}
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}
	hash ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	return hash
}

package build

import (
	// keeps github.com/btcsuite/btcd/chaincfg/chainhash in go.mod; ssi-sdk's secp256k1 keys need it and it is
	// otherwise dropped as ambiguous
	_ "github.com/btcsuite/btcd/chaincfg/chainhash"
)

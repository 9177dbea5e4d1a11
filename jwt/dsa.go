package jwt

import (
	// DS128 and DS256 are defined over plain DSA with SHA-1 and SHA-256;
	// the deprecated stdlib packages are exactly what the wire format needs.
	"crypto/dsa"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
	"math/big"

	"github.com/return42/browserid/errors"
)

// dsKey implements the DS128 and DS256 algorithms: DSA with SHA-1 over a
// 160-bit subgroup and DSA with SHA-256 over a 256-bit subgroup. Signatures
// are the concatenation r || s with each value padded to the subgroup size.
type dsKey struct {
	algorithm   string
	sigParamLen int
	newHash     func() hash.Hash
	pub         dsa.PublicKey
	x           *big.Int
}

func newDSKey(algorithm string, keyData KeyData) (Key, error) {
	key := &dsKey{algorithm: algorithm}
	switch algorithm {
	case "DS128":
		key.sigParamLen = 20
		key.newHash = sha1.New
	case "DS256":
		key.sigParamLen = 32
		key.newHash = sha256.New
	}

	for _, field := range []struct {
		name string
		dest **big.Int
	}{
		{"p", &key.pub.P},
		{"q", &key.pub.Q},
		{"g", &key.pub.G},
		{"y", &key.pub.Y},
	} {
		value, err := bigIntField(keyData, field.name, 16)
		if err != nil {
			return nil, err
		}
		*field.dest = value
	}

	if _, ok := keyData["x"]; ok {
		x, err := bigIntField(keyData, "x", 16)
		if err != nil {
			return nil, err
		}
		key.x = x
	}

	return key, nil
}

func (k *dsKey) Algorithm() string {
	return k.algorithm
}

func (k *dsKey) digest(data []byte) []byte {
	h := k.newHash()
	h.Write(data)

	return h.Sum(nil)
}

func (k *dsKey) Sign(data []byte) ([]byte, error) {
	if k.x == nil {
		return nil, errors.Errorf(errors.KindMalformedToken, "private key not present")
	}

	priv := dsa.PrivateKey{PublicKey: k.pub, X: k.x}
	r, s, err := dsa.Sign(rand.Reader, &priv, k.digest(data))
	if err != nil {
		return nil, errors.Errorf(errors.KindMalformedToken, "failed to sign data: %s", err)
	}

	signature := make([]byte, 2*k.sigParamLen)
	r.FillBytes(signature[:k.sigParamLen])
	s.FillBytes(signature[k.sigParamLen:])

	return signature, nil
}

func (k *dsKey) Verify(signedData []byte, signature []byte) bool {
	// Some signers strip leading zero bytes off of r and s; pad short
	// signatures back out, but reject anything longer than the subgroup
	// size allows.
	if len(signature) > 2*k.sigParamLen {
		return false
	}
	padded := make([]byte, 2*k.sigParamLen)
	copy(padded[2*k.sigParamLen-len(signature):], signature)

	r := new(big.Int).SetBytes(padded[:k.sigParamLen])
	s := new(big.Int).SetBytes(padded[k.sigParamLen:])

	return dsa.Verify(&k.pub, k.digest(signedData), r, s)
}

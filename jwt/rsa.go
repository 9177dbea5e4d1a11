package jwt

import (
	"crypto/sha256"
	"math/big"

	"github.com/return42/browserid/errors"
)

// sha256DigestInfo is the DER-encoded DigestInfo prefix for SHA-256 used in
// EMSA-PKCS1-v1_5 encoding.
var sha256DigestInfo = []byte{
	0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86,
	0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01, 0x05,
	0x00, 0x04, 0x20,
}

// rsKey implements the RS64, RS128 and RS256 algorithms: RSASSA-PKCS1-v1_5
// with SHA-256 over 1024, 1280 and 2048 bit moduli. Verification compares in
// the integer domain rather than through crypto/rsa because deployed signers
// serialize signatures as minimal big-endian integers, stripping leading zero
// bytes that a strict octet-string comparison would require.
type rsKey struct {
	algorithm string
	emLen     int
	n, e      *big.Int
	d         *big.Int
}

func newRSKey(algorithm string, emLen int, keyData KeyData) (Key, error) {
	n, err := bigIntField(keyData, "n", 10)
	if err != nil {
		return nil, err
	}

	e, err := bigIntField(keyData, "e", 10)
	if err != nil {
		return nil, err
	}

	key := &rsKey{algorithm: algorithm, emLen: emLen, n: n, e: e}
	if _, ok := keyData["d"]; ok {
		if key.d, err = bigIntField(keyData, "d", 10); err != nil {
			return nil, err
		}
	}

	return key, nil
}

func (k *rsKey) Algorithm() string {
	return k.algorithm
}

// encode computes the EMSA-PKCS1-v1_5 encoding of data as an integer:
// 0x00 0x01 0xFF.. 0x00 DigestInfo digest, padded out to emLen bytes.
func (k *rsKey) encode(data []byte) *big.Int {
	digest := sha256.Sum256(data)

	em := make([]byte, 0, k.emLen)
	em = append(em, 0x00, 0x01)
	for i := 0; i < k.emLen-3-len(sha256DigestInfo)-len(digest); i++ {
		em = append(em, 0xff)
	}
	em = append(em, 0x00)
	em = append(em, sha256DigestInfo...)
	em = append(em, digest[:]...)

	return new(big.Int).SetBytes(em)
}

func (k *rsKey) Sign(data []byte) ([]byte, error) {
	if k.d == nil {
		return nil, errors.Errorf(errors.KindMalformedToken, "private key not present")
	}

	signature := new(big.Int).Exp(k.encode(data), k.d, k.n)

	return signature.Bytes(), nil
}

func (k *rsKey) Verify(signedData []byte, signature []byte) bool {
	sig := new(big.Int).SetBytes(signature)
	if sig.Cmp(k.n) >= 0 {
		return false
	}

	return new(big.Int).Exp(sig, k.e, k.n).Cmp(k.encode(signedData)) == 0
}

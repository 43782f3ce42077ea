package accounts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/digestry/digestry/internal/common"
)

// DefaultMaxDrift bounds how far a signed request's timestamp may sit from
// the verifier's clock before the request is rejected as a replay.
const DefaultMaxDrift = 5 * time.Minute

// SignRequest computes the hex signature for a request: an HMAC-SHA256
// with the account key over the timestamp, the username, and the request
// payload serialized without its Sig header.
func SignRequest(key []byte, user string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(user))
	mac.Write([]byte{'\n'})
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRequest checks a request signature. The timestamp must be within
// maxDrift of now (a non-positive maxDrift disables the window check), and
// the recomputed signature must match in constant time. Failures unwrap to
// common.ErrorUnauthorized.
func VerifyRequest(key []byte, user string, ts int64, payload []byte, sig string, now time.Time, maxDrift time.Duration) error {
	if maxDrift > 0 {
		drift := now.Unix() - ts
		if drift < 0 {
			drift = -drift
		}
		if drift > int64(maxDrift.Seconds()) {
			return fmt.Errorf("timestamp outside allowed window: %w", common.ErrorUnauthorized)
		}
	}

	want := SignRequest(key, user, ts, payload)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return fmt.Errorf("signature mismatch: %w", common.ErrorUnauthorized)
	}
	return nil
}

package http

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/infimum-network/infimum/poll"
)

func decodeFixedHex(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("hostadapter/http: decode hex: %w", err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("hostadapter/http: decoded length %d, want %d", len(b), len(dst))
	}
	copy(dst, b)
	return nil
}

func fieldFromHex(b [32]byte) fr.Element {
	var e fr.Element
	e.SetBytes(b[:])
	return e
}

func pollIDParam(c *gin.Context) (poll.PollID, error) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("hostadapter/http: invalid poll id: %w", err)
	}
	return poll.PollID(v), nil
}

// currentBlockParam reads an optional ?now= query parameter, defaulting to
// 0; devnet and test clients drive the chain clock explicitly this way
// since the host adapter itself has no notion of wall-clock block height.
func currentBlockParam(c *gin.Context) poll.BlockNumber {
	v, err := strconv.ParseUint(c.Query("now"), 10, 64)
	if err != nil {
		return 0
	}
	return poll.BlockNumber(v)
}

// Package validation provides input validation helpers for the scoring API.
package validation

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidContractAddress checks if a string is a valid Ethereum contract address.
func IsValidContractAddress(addr string) bool {
	return common.IsHexAddress(addr)
}

// NormalizeContractAddress returns the checksummed form of an address.
// The input must already pass IsValidContractAddress.
func NormalizeContractAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// CoerceFloat converts a JSON-decoded value to float64. Accepts numbers,
// numeric strings, and booleans (1/0). Anything else is an error.
func CoerceFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", x)
		}
		return f, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

// Package pagination normalizes page sizes and sequence page tokens.
package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int, cfg PageSizeConfig) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// EncodeSeqToken renders the last sequence number of a page as a page token.
func EncodeSeqToken(seq int64) string {
	if seq <= 0 {
		return ""
	}
	return strconv.FormatInt(seq, 36)
}

// DecodeSeqToken parses a token produced by EncodeSeqToken. An empty token
// means "from the beginning" and decodes to zero.
func DecodeSeqToken(token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	seq, err := strconv.ParseInt(token, 36, 64)
	if err != nil || seq <= 0 {
		return 0, fmt.Errorf("invalid page token %q", token)
	}
	return seq, nil
}

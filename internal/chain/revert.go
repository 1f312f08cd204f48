package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// RevertReason replays call at blockNumber and decodes why it failed.
// Returns "" when the node offers nothing machine-readable.
func RevertReason(ctx context.Context, backend Backend, call ethereum.CallMsg, blockNumber *big.Int) string {
	_, err := backend.CallContract(ctx, call, blockNumber)
	if err == nil {
		return ""
	}
	return reasonFromError(err)
}

func reasonFromError(err error) string {
	if dataErr, ok := err.(rpc.DataError); ok {
		if reason := decodeRevertData(dataErr.ErrorData()); reason != "" {
			return reason
		}
	}
	msg := err.Error()
	if i := strings.Index(msg, "execution reverted"); i >= 0 {
		tail := strings.TrimSpace(strings.TrimPrefix(msg[i:], "execution reverted"))
		return strings.TrimSpace(strings.TrimPrefix(tail, ":"))
	}
	return ""
}

func decodeRevertData(data interface{}) string {
	var raw []byte
	switch v := data.(type) {
	case string:
		b, err := hexutil.Decode(v)
		if err != nil {
			return ""
		}
		raw = b
	case []byte:
		raw = v
	default:
		return ""
	}
	if len(raw) == 0 {
		return ""
	}
	if reason, err := abi.UnpackRevert(raw); err == nil {
		return reason
	}
	// Custom error: surface the 4-byte selector so callers can match it.
	if len(raw) >= 4 {
		return "custom error " + hexutil.Encode(raw[:4])
	}
	return common.Bytes2Hex(raw)
}

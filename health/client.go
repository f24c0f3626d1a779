package health

import (
	"encoding/json"

	"github.com/gostdlib/base/context"

	rpccore "github.com/shuai132/rpc-core"
)

// Check performs a health check against rpc's peer. Use an empty string to
// check the overall server health. Returns Unknown and the underlying error
// on any transport, encode, or decode failure.
func Check(ctx context.Context, rpc *rpccore.Rpc, service string) (ServingStatus, error) {
	reqBytes, err := json.Marshal(checkRequest{Service: service})
	if err != nil {
		return Unknown, err
	}

	respBytes, err := rpc.CallSync(ctx, Cmd, reqBytes)
	if err != nil {
		return Unknown, err
	}

	var resp checkResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return Unknown, err
	}
	return resp.Status, nil
}

package request

// FinallyType enumerates the terminal outcomes of a call(), per spec.md §4.4
// and §7. Exactly one of these is reported to finally() per call().
type FinallyType int

const (
	// Normal indicates a response was received and decoded successfully.
	Normal FinallyType = iota
	// NoNeedRsp indicates a fire-and-forget call succeeded at send time.
	NoNeedRsp
	// Timeout indicates no response arrived within timeout_ms and retries
	// were exhausted.
	Timeout
	// Canceled indicates the user canceled the request, directly or via
	// Dispose.
	Canceled
	// RpcExpired indicates the owning Rpc was gone before call() could run.
	RpcExpired
	// RpcNotReady indicates the Rpc was present but not ready.
	RpcNotReady
	// RspSerializeError indicates a response arrived but the user codec
	// rejected it.
	RspSerializeError
	// NoSuchCmd indicates the peer had no handler for the command.
	NoSuchCmd
)

func (t FinallyType) String() string {
	switch t {
	case Normal:
		return "normal"
	case NoNeedRsp:
		return "no_need_rsp"
	case Timeout:
		return "timeout"
	case Canceled:
		return "canceled"
	case RpcExpired:
		return "rpc_expired"
	case RpcNotReady:
		return "rpc_not_ready"
	case RspSerializeError:
		return "rsp_serialize_error"
	case NoSuchCmd:
		return "no_such_cmd"
	default:
		return "unknown"
	}
}

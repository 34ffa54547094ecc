package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/GovIndexor/internal/common"
)

// ErrorClass groups RPC failures by how the caller should react to them.
type ErrorClass string

const (
	ClassCanceled      ErrorClass = "canceled"
	ClassTimeout       ErrorClass = "timeout"
	ClassNetwork       ErrorClass = "network"
	ClassRateLimited   ErrorClass = "rate_limited"
	ClassServer        ErrorClass = "server"
	ClassMissingBlock  ErrorClass = "missing_block"
	ClassRangeTooLarge ErrorClass = "range_too_large"
	ClassFatal         ErrorClass = "fatal"
)

// JSON-RPC codes used by node providers.
const (
	codeLimitExceeded = -32005
	codeInternal      = -32603
)

// ErrMissingBlock is returned when a node does not know a block it was asked for,
// usually because a load-balanced backend lags behind the head that was reported.
var ErrMissingBlock = errors.New("block not available on node")

var (
	tooManyResultsRe = regexp.MustCompile(
		`(?i)(query returned more than \d+ results|log response size exceeded|block range too large)`)
	suggestedRangeRe = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// Retryable reports whether a call failing with this class may succeed when repeated.
// Oversized log ranges are not retried here; the log fetcher narrows them instead.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassTimeout, ClassNetwork, ClassRateLimited, ClassServer, ClassMissingBlock:
		return true
	}
	return false
}

// Classify maps an error returned by the node client to its class.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	if _, ok := LogRangeHint(err); ok {
		return ClassRangeTooLarge
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	if errors.Is(err, ErrMissingBlock) || errors.Is(err, ethereum.NotFound) {
		return ClassMissingBlock
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return ClassRateLimited
		case httpErr.StatusCode >= http.StatusInternalServerError:
			return ClassServer
		default:
			return ClassFatal
		}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeLimitExceeded:
			return ClassRateLimited
		case codeInternal:
			return ClassServer
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassNetwork
	}

	// Providers often flatten HTTP failures into the JSON-RPC message.
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "429", "too many requests", "rate limit"):
		return ClassRateLimited
	case containsAny(msg, "502", "503", "504", "bad gateway", "service unavailable", "gateway timeout"):
		return ClassServer
	case containsAny(msg, "timeout", "deadline exceeded"):
		return ClassTimeout
	}

	return ClassFatal
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// RangeHint describes an eth_getLogs rejection because the range holds too many logs.
// When the provider names a range it accepts, Suggested is set and From/To hold it.
type RangeHint struct {
	From      uint64
	To        uint64
	Suggested bool
}

// LogRangeHint reports whether err rejects an eth_getLogs range as too large and
// extracts the provider's suggested range when there is one. The hint is read from
// the error data first and from the message second.
func LogRangeHint(err error) (RangeHint, bool) {
	if err == nil {
		return RangeHint{}, false
	}

	text := err.Error()
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data := fmt.Sprintf("%v", dataErr.ErrorData()); tooManyResultsRe.MatchString(data) {
			text = data
		}
	}
	if !tooManyResultsRe.MatchString(text) {
		return RangeHint{}, false
	}

	hint := RangeHint{}
	if m := suggestedRangeRe.FindStringSubmatch(text); m != nil {
		from, errFrom := common.ParseUint64orHex(&m[1])
		to, errTo := common.ParseUint64orHex(&m[2])
		if errFrom == nil && errTo == nil && from <= to {
			hint = RangeHint{From: from, To: to, Suggested: true}
		}
	}

	return hint, true
}

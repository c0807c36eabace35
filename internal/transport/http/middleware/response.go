package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// MsgTooManyRequests is returned once a client exhausts its send budget.
const MsgTooManyRequests = "Too many OTP requests. Please wait and try again."

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeTooManyRequests rejects a request with 429 and a Retry-After hint
// derived from the refill rate.
func writeTooManyRequests(w http.ResponseWriter, r rate.Limit) {
	if wait := retryAfter(r); wait > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(wait))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(errorBody{Error: MsgTooManyRequests})
}

// retryAfter is the whole number of seconds until one token refills, or 0
// when the limiter never refills.
func retryAfter(r rate.Limit) int {
	if r <= 0 || r == rate.Inf {
		return 0
	}
	return int(math.Ceil(1 / float64(r)))
}

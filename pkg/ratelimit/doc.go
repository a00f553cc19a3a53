// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package ratelimit paces the namespace-discovery API calls the
// GitHub and GitLab discoverers make, so enumerating a large
// namespace never exceeds the host's request budget.
//
// # Usage
//
//	limiter := ratelimit.NewLimiter(5000) // 5000 requests/hour
//	if err := limiter.Wait(ctx); err != nil { ... }
//	limiter.UpdateFromHeaders(resp)
package ratelimit

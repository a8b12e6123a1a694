package server

import "github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity/emaillink"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Session API
	RouteAPISession         = "/api/session"
	RouteAPISessionActivity = "/api/session/activity"
	RouteAPICheckoutIntent  = "/api/checkout/intent"

	// Auth Routes - Email link
	RouteEmailStart  = "/auth/email/start"
	RouteEmailVerify = emaillink.VerifyPath

	// Auth Routes - Wallet
	RouteWalletChallenge = "/auth/wallet/challenge"
	RouteWalletVerify    = "/auth/wallet/verify"

	// Auth Routes - Hosted identity provider
	RouteOIDCLogin    = "/auth/oidc/login"
	RouteOIDCCallback = "/auth/oidc/callback"

	RouteAuthLogout = "/auth/logout"

	// Static Asset Routes (patterns)
	RouteStaticJS = "/js/{file}"
)

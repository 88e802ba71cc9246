// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

// Endpoints contains REST API endpoint paths relative to the base URL.
type Endpoints struct {
	SocialLogin string // provider name is appended, e.g. "/api/auth/login/kakao"
	Refresh     string
	Logout      string
	Me          string
	Version     string
}

// DefaultEndpoints returns the paths served by the NearDeal API.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SocialLogin: "/api/auth/login/",
		Refresh:     "/api/auth/refresh",
		Logout:      "/api/auth/logout",
		Me:          "/api/users/me",
		Version:     "/api/version",
	}
}

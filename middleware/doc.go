// Package middleware adapts [tokenauth.Engine] access-token verification to
// net/http.
//
// [Guard] reads the Authorization: Bearer header, calls
// Engine.VerifyAccess and stores the [tokenauth.AuthResult] in the request
// context for [AuthResultFromContext]. Rejections go to an ErrorHandler so
// the transport decides the response body; the default answers 401 with a
// plain-text body.
package middleware

// Package httpapi is the JSON-over-HTTP transport for [tokenauth.Engine].
//
// Routes:
//
//	POST /auth/register          {email, password}       201 {"message":"User created"}
//	POST /auth/login             {email, password}       200 {accessToken, refreshToken} + cookie
//	POST /auth/refresh           refreshToken cookie     200 {accessToken} + rotated cookie
//	POST /auth/logout            refreshToken cookie     204, cookie cleared
//	POST /auth/logout-all        Bearer access token     200 {"revoked": n}, cookie cleared
//	POST /auth/forgot-password   {email}                 200 {"message":"If user exists, email sent"}
//	GET  /user/profile           Bearer access token     200 {email}
//	GET  /healthz                                        200 {"status":"ok"}
//	GET  /metrics                                        Options.Metrics, when set
//
// Every failure is a JSON object {"error": "..."}; validation failures add
// "details". Status codes follow [tokenauth.KindOf].
package httpapi

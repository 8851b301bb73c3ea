// Package cookie writes and reads HMAC-SHA256 signed cookies.
//
// A Manager is created with one or more secrets of at least 32 bytes. The
// first secret signs new cookies; every secret is accepted when verifying,
// so secrets can be rotated by prepending a new one and removing the old one
// after the longest cookie lifetime has passed.
//
//	mgr, err := cookie.New([]string{os.Getenv("COOKIE_SECRET")}, cookie.WithSecure(true))
//	if err != nil {
//		return err
//	}
//	_ = mgr.SetSigned(w, "sid", token, cookie.WithMaxAge(3600))
//	token, err := mgr.GetSigned(r, "sid")
package cookie

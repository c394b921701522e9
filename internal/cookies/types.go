// Package cookies parses, cleans and merges the raw Instagram cookie header that
// backs the agent's authenticated session.
//
// The raw cookie string is the source of truth. Everything in this package is a
// pure transformation of that string: no I/O, no shared state.
//
// Cookie values are credentials. Callers must never log them; names are fine.
package cookies

import "time"

// Credential cookie names.
const (
	NameSessionID = "sessionid"
	NameCSRFToken = "csrftoken"
	NameUserID    = "ds_user_id"
	NameDeviceID  = "ig_did"
	NameRotation  = "rur"
)

// RequiredNames are the cookies that must all carry a value for a session to be usable.
// The order is canonical and is used when reporting missing names.
var RequiredNames = []string{
	NameSessionID,
	NameCSRFToken,
	NameUserID,
	NameDeviceID,
}

// allowedPrefixes are the name prefixes of cookies that belong to the platform.
// Anything else is dropped before a header leaves the process.
var allowedPrefixes = []string{
	"ig_",
	"ds_",
	"csrf",
	"mid",
	"rur",
	"session",
	"fb",
}

// instagramDomains is the allow-list of Domain attribute values recognised by Parse.
var instagramDomains = []string{
	".instagram.com",
	"instagram.com",
	"www.instagram.com",
	".www.instagram.com",
	"i.instagram.com",
	".i.instagram.com",
}

// Entry is one parsed cookie. Entries are values; re-parse rather than mutate.
type Entry struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  *time.Time
	HTTPOnly bool
	Secure   bool
}

// Identity is the minimal authenticated identity derived from a raw cookie string.
type Identity struct {
	SessionID string
	CSRFToken string
	UserID    string
	DeviceID  string
	// Rotation is the optional rur token; empty when the cookie is absent.
	Rotation string
}

package cookies

import (
	"errors"
	"strings"
)

// ErrCredentialNotFound is returned when a named credential cookie is absent or empty.
var ErrCredentialNotFound = errors.New("credential not found in cookies")

// MissingCredentialsError lists the required cookies a raw string lacks.
type MissingCredentialsError struct {
	Names []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing required Instagram cookies: " + strings.Join(e.Names, ", ")
}

// ExtractCredential returns the value of the named cookie. Duplicates resolve to the
// last occurrence, matching Clean.
func ExtractCredential(raw, name string) (string, error) {
	e, ok := collect(raw).get(name)
	if !ok || e.Value == "" {
		return "", ErrCredentialNotFound
	}
	return e.Value, nil
}

// CSRFToken returns the anti-forgery token sent on mutating requests.
func CSRFToken(raw string) (string, error) {
	return ExtractCredential(raw, NameCSRFToken)
}

// Missing returns the required cookie names that are absent or empty in raw, in canonical order.
func Missing(raw string) []string {
	j := collect(raw)
	var missing []string
	for _, name := range RequiredNames {
		if e, ok := j.get(name); !ok || e.Value == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// IsValid reports whether raw carries every required credential. It never panics.
func IsValid(raw string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return len(Missing(raw)) == 0
}

// ExtractSession builds the typed identity from raw, failing with *MissingCredentialsError.
func ExtractSession(raw string) (Identity, error) {
	j := collect(raw)

	var missing []string
	value := func(name string) string {
		e, ok := j.get(name)
		if !ok || e.Value == "" {
			missing = append(missing, name)
			return ""
		}
		return e.Value
	}

	id := Identity{
		SessionID: value(NameSessionID),
		CSRFToken: value(NameCSRFToken),
		UserID:    value(NameUserID),
		DeviceID:  value(NameDeviceID),
	}
	if len(missing) > 0 {
		return Identity{}, &MissingCredentialsError{Names: missing}
	}

	if rur, ok := j.get(NameRotation); ok {
		id.Rotation = rur.Value
	}
	return id, nil
}

package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// ScreenFinding reports an injection pattern found in a filter value.
type ScreenFinding struct {
	Name        string
	Value       any
	Fingerprint string
}

// ScreenValue checks one filter value for SQL injection patterns before
// it is interpolated into a statement. Non-string values cannot carry
// injection payloads and always pass. Returns nil when the value is
// clean.
func ScreenValue(name string, value any) *ScreenFinding {
	str, ok := value.(string)
	if !ok {
		return nil
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(str); isSQLi {
		return &ScreenFinding{
			Name:        name,
			Value:       value,
			Fingerprint: string(fingerprint),
		}
	}
	return nil
}

// ScreenValues checks a filter map and returns one finding per value
// that tripped the screen.
func ScreenValues(values map[string]any) []*ScreenFinding {
	var findings []*ScreenFinding
	for name, value := range values {
		if f := ScreenValue(name, value); f != nil {
			findings = append(findings, f)
		}
	}
	return findings
}

package jsbridge

import "encoding/json"

// quote renders s as a script string literal.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

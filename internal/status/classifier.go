package status

// Matches reports whether rawStatus is one of allowed. The comparison is exact
// and case-sensitive; an empty status never matches.
func Matches(rawStatus string, allowed []string) bool {
	if rawStatus == "" {
		return false
	}
	for _, s := range allowed {
		if s == rawStatus {
			return true
		}
	}
	return false
}

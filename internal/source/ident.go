package source

// IsIdent reports whether s is safe to splice into SQL as a table or column
// name: ASCII letter or underscore first, then letters, digits or
// underscores. The SQL backends build their SELECT from config values, so
// they must refuse anything fancier.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

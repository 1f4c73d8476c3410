package main

// isModerator reports whether id is in the configured moderator list.
func isModerator(ids []int64, id int64) bool {
	for _, m := range ids {
		if m == id {
			return true
		}
	}
	return false
}

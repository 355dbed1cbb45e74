package scan

// SetPageSize overrides the reverse-iteration page size.
func (s *DirectoryScope) SetPageSize(n int) *DirectoryScope {
	s.pageSize = n
	return s
}

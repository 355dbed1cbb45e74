package database

// Truncate removes every row the tests may have left behind.
func (s *SQLDatabase) Truncate() error {
	for _, table := range []string{"fingerprints", "scan_runs"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return nil
}

package portfolio

// Active exposes per-input activity flags to the external test package.
func (s *Simulator) Active() []bool { return s.active }

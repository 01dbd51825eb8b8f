package trade

// AddPriceModifier activates a modifier. When the list is full one modifier is
// evicted according to the configured policy.
func (s *System) AddPriceModifier(t ModifierType, description string, value, expiry float64) {
	if len(s.modifiers) >= s.cfg.MaxModifiers {
		i := s.cfg.Eviction.victim(s.modifiers)
		s.modifiers = append(s.modifiers[:i], s.modifiers[i+1:]...)
	}
	s.seq++
	s.modifiers = append(s.modifiers, PriceModifier{
		Type:        t,
		Description: description,
		Value:       value,
		ExpiryTime:  expiry,
		seq:         s.seq,
	})
}

// RemovePriceModifier removes the first modifier matching type and description.
func (s *System) RemovePriceModifier(t ModifierType, description string) bool {
	for i, m := range s.modifiers {
		if m.Type == t && m.Description == description {
			s.modifiers = append(s.modifiers[:i], s.modifiers[i+1:]...)
			return true
		}
	}
	return false
}

// HasPriceModifier reports whether a modifier with type and description is active.
func (s *System) HasPriceModifier(t ModifierType, description string) bool {
	for _, m := range s.modifiers {
		if m.Type == t && m.Description == description {
			return true
		}
	}
	return false
}

// ActiveModifiers returns a copy of the active modifiers in insertion order.
func (s *System) ActiveModifiers() []PriceModifier {
	out := make([]PriceModifier, len(s.modifiers))
	copy(out, s.modifiers)
	return out
}

// CombinedModifier is the product of every active modifier value.
func (s *System) CombinedModifier() float64 {
	product := 1.0
	for _, m := range s.modifiers {
		product *= m.Value
	}
	return product
}

// UpdatePriceModifiers advances game time to now (never backwards) and purges
// every modifier with an expiry at or before it.
func (s *System) UpdatePriceModifiers(now float64) int {
	if now > s.now {
		s.now = now
	}
	kept := s.modifiers[:0]
	for _, m := range s.modifiers {
		if m.Expires() && m.ExpiryTime <= now {
			continue
		}
		kept = append(kept, m)
	}
	purged := len(s.modifiers) - len(kept)
	s.modifiers = kept
	return purged
}

package autosave

// Guard decides whether the user may leave the editing view
type Guard struct {
	c *Coordinator
}

// Guard the navigation guard of this session
func (c *Coordinator) Guard() Guard { return Guard{c: c} }

// BeforeLeave allows leaving when no save is in flight. Otherwise it asks
// confirm and follows the answer; a nil confirm blocks.
func (g Guard) BeforeLeave(confirm func() bool) bool {
	if g.c.PendingCount() == 0 {
		return true
	}
	return confirm != nil && confirm()
}
